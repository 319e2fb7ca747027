// Package config loads runtime configuration for the chat CLI.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Flags
//
//	-a string   address:port of the chat server
//	-m string   accept mode: none, single, multiple or directory
//	-t string   comma separated allowed file types, e.g. "png,.jpg"
//	-x int      maximum number of characters in a message (0: unlimited)
//	-s int      maximum upload size in MB (0: unlimited)
//	-h string   path of the local history database
//	-f string   fragment id attached to submitted values
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "accept_file": "multiple",
//	  "file_types": ["png", "txt"],
//	  "max_chars": 0,
//	  "max_upload_size_mb": 200,
//	  "history_path": "data/history.db",
//	  "fragment_id": "",
//	  "online_check_interval": "3s"
//	}
package config
