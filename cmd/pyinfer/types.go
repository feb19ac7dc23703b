package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIValue is one inferred value.
type CLIValue struct {
	Kind    string `json:"kind"`
	Repr    string `json:"repr"`
	Origin  string `json:"origin,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col"`
	Literal any    `json:"literal,omitempty"`
}

// CLIInference is the result of inferring the node at a position.
type CLIInference struct {
	File   string     `json:"file"`
	Module string     `json:"module"`
	Line   int        `json:"line"`
	Col    int        `json:"col"`
	Node   string     `json:"node"`
	Values []CLIValue `json:"values"`
}

// CLIExport is one indexed value of a module-level name.
type CLIExport struct {
	Module  string `json:"module"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Repr    string `json:"repr"`
	Origin  string `json:"origin,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col"`
	Literal any    `json:"literal,omitempty"`
	File    string `json:"file,omitempty"`
}

// CLIImport is a JSON-friendly import representation.
type CLIImport struct {
	Module string  `json:"module"`
	Name   *string `json:"name,omitempty"`
	AsName *string `json:"as_name,omitempty"`
	Level  int     `json:"level"`
	Line   int     `json:"line"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Module    string `json:"module"`
	IsPackage bool   `json:"is_package"`
	LineCount int    `json:"line_count"`
}
