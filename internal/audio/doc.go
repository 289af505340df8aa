// Package audio implements the speak action. A Speaker asks the server's
// /tts endpoint to synthesise a paragraph and starts playback of the
// returned audio URL, keeping the triggering button busy for the duration
// of the request. CommandPlayer plays audio through whatever command line
// player the platform offers.
package audio
