// Package vocabulary keeps a local notebook of the words the server
// highlights in its translations. Entries live in a SQLite database; a word
// seen again has its frequency bumped instead of being stored twice.
package vocabulary
