// Package cel provides a CEL (Common Expression Language) evaluator for
// policy-gate conditions.
//
// CEL is a non-Turing complete expression language that provides fast, safe
// evaluation of gate conditions loaded from the policy document.
//
// Example usage:
//
//	evaluator := cel.NewEvaluator()
//
//	vars := map[string]interface{}{
//	    "patient": map[string]interface{}{
//	        "age":               16,
//	        "caregiver_consent": false,
//	    },
//	}
//
//	blocked, err := evaluator.EvalBool("patient.age < 18 && !patient.caregiver_consent", vars)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Supported operations:
//   - Comparisons: ==, !=, <, <=, >, >=
//   - Boolean logic: &&, ||, !
//   - String operations: contains, startsWith, endsWith, matches
//   - Arithmetic: +, -, *, /, %
//   - List operations: in, size
//   - Map access: patient.field, request["field"]
package cel
