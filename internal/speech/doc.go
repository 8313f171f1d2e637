// Package speech turns patient audio into text for the conversation
// loop.
//
// Three backends are supported: the OpenAI speech-to-text API, a
// self-hosted whisper HTTP server, and Gemini multimodal transcription.
// Backends are tried in chain order; an unconfigured backend is
// skipped and a failing one falls through to the next. The result
// records which backend produced the text.
package speech
