package config

import (
	"fmt"
	"io"
	"os"

	"github.com/Temutjin2k/ride-hail-client/pkg/configparser"
)

// PrintConfig writes the effective configuration to stdout with secrets masked.
func PrintConfig(cfg *Config) {
	FprintConfig(os.Stdout, cfg)
}

func FprintConfig(w io.Writer, cfg *Config) {
	fmt.Fprintln(w, "effective configuration:")
	for _, line := range configparser.Dump(cfg) {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
