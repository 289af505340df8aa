// Package page models the parts of an article page that readalong reads
// from and renders into. Handlers receive explicit element references
// (a TextSource for a paragraph, a Container for results, a Button for the
// speak control) instead of looking elements up by naming convention.
package page
