// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the demul configuration.
//
// Configuration comes from at most one file, named by the --config flag
// (via [LoadFile]) or the DEMUL_CONFIG environment variable (via
// [Load]). Without either, [Default] applies. There is no search path.
// Command-line flags override whatever the file says.
//
// Files ending in .json or .jsonc are JSON with comments and trailing
// commas allowed; any other file is YAML. A file only needs the fields
// it changes:
//
//	binary_channels: 2
//	client:
//	  baud: 115200
//	trace:
//	  path: ${HOME}/demul.trace
//
// ${VAR} and ${VAR:-default} are expanded in the shell and trace.path
// fields after loading.
package config
