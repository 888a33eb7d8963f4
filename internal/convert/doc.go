// Package convert turns input files into plain text or Markdown before
// chunking. Converters are selected by file extension through a Registry;
// files with no registered converter are used as they are.
//
// Two PDF converters exist: MarkerConverter runs the marker_single tool as a
// child process and GeminiConverter sends the document to the Gemini API.
// Both need a Gemini API key and write <dir>/<stem>/<stem>.md next to the
// input.
package convert
