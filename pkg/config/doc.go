// Package config loads the agent's YAML configuration file and applies
// defaults. The resulting types.AgentConfig is plain data; components
// receive it at construction and never re-read the file.
package config
