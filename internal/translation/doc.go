// Package translation implements the translate action: it sends one
// paragraph to the server's /translate endpoint and renders the returned
// HTML fragment, or an inline error, into the paragraph's container.
// It also keeps the last good result per paragraph for re-display and can
// persist a rendered fragment to disk.
package translation
