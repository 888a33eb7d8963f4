// Package chunking splits extracted document text into chunks using a
// strategy chosen by name.
//
// Strategies:
//
//	recursive_text    recursive character splitting, 1000 runes with 100 overlap
//	section_semantic  Markdown heading aware splitting
//	semantic          consecutive sentences grouped by lexical cohesion
//	auto_ai           section_semantic for documents with Markdown headings,
//	                  recursive_text otherwise ("default" and "" are aliases)
//
// Text is NFC normalized before splitting, and every chunk gets a
// deterministic ID derived from its source, position and content.
package chunking
