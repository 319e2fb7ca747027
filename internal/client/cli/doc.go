// Package cli is the interactive GophChat terminal client.
//
// It drives one chatinput.Input: plain lines edit the message, Enter submits
// it, and slash commands attach, list and remove files. Submitted values go to
// the server through the gRPC client and are kept in a local SQLite history.
//
//	/attach <path>...   attach files
//	/attachdir <dir>    attach every file below dir
//	/rm <n>             remove the n-th attached file
//	/retry <n>          retry a failed upload
//	/files              list attached files
//	/send               submit the current message
//	/history [n]        show the last n submissions
//	/status             show the input and connection state
//	/help               show this list
//	/quit               leave
//
// A line ending with a backslash continues the message on the next line.
package cli
