package internal

// Version is the readalong release
const Version = "0.3.0"
