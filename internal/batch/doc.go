// Package batch turns plain text files into documents so paragraphs can be
// translated or spoken without an article page.
package batch
