// Package processor contains the command logic of readalong. It loads a
// page or batch file, runs the translate and speak actions against the
// reading server, prints their outcome, and manages the vocabulary
// notebook. This package serves as the coordinator between all other
// components.
package processor
