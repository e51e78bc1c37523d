package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"jitcc/internal/artifact"
	"jitcc/internal/jit"
)

var (
	codeOut    string
	codeFormat string
	codeImages bool
)

func init() {
	codeCmd.Flags().StringVarP(&codeOut, "out", "o", "", "write to this file (a directory with --images)")
	codeCmd.Flags().StringVar(&codeFormat, "format", "", "output format (hex|msgpack); msgpack when --out is set")
	codeCmd.Flags().BoolVar(&codeImages, "images", false, "emit every live image instead of the result expression")
}

var codeCmd = &cobra.Command{
	Use:   "code <sample>",
	Short: "Show the machine code generated for a sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(codeFormat)
		if format == "" {
			format = "hex"
			if codeOut != "" {
				format = "msgpack"
			}
		}
		switch format {
		case "hex", "msgpack":
		default:
			return fmt.Errorf("unsupported format %q (must be hex or msgpack)", codeFormat)
		}
		if format == "msgpack" && codeOut == "" {
			return fmt.Errorf("msgpack output needs --out")
		}

		s, err := findSample(args[0])
		if err != nil {
			return err
		}
		c, err := newCompiler(cmd.Context(), current.cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		arts, err := collectArtifacts(c, s, codeImages)
		if err != nil {
			return err
		}
		if format == "hex" {
			return writeHex(cmd.OutOrStdout(), arts)
		}
		return writeArtifacts(codeOut, codeImages, arts)
	},
}

// collectArtifacts captures either the result expression of s or every
// image left alive by its definitions.
func collectArtifacts(c *jit.Compiler, s *sample, images bool) ([]*artifact.Artifact, error) {
	result, err := s.setup(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	if !images {
		code, err := c.MachineCodeForExpr(c.InlineGlobals(result))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		return []*artifact.Artifact{artifact.FromCode(s.name, code)}, nil
	}
	if _, err := c.Finalize(); err != nil {
		return nil, err
	}
	var arts []*artifact.Artifact
	for _, img := range c.Engine().Images() {
		arts = append(arts, artifact.FromImage(fmt.Sprintf("%s.%d", s.name, img.ID), img))
	}
	if len(arts) == 0 {
		return nil, fmt.Errorf("%s: no live images", s.name)
	}
	return arts, nil
}

func writeHex(out io.Writer, arts []*artifact.Artifact) error {
	for _, a := range arts {
		fmt.Fprintf(out, "%s (%d bytes)\n", nameColor.Sprint(a.Name), len(a.Code))
		for _, sym := range a.Symbols {
			if len(a.Symbols) > 1 || sym.Name != a.Name {
				fmt.Fprintf(out, "  %-24s +%#x %d bytes\n", sym.Name, sym.Offset, sym.Size)
			}
		}
		if _, err := io.WriteString(out, hex.Dump(a.Code)); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifacts(out string, images bool, arts []*artifact.Artifact) error {
	if !images {
		return artifact.WriteFile(out, arts[0])
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, a := range arts {
		if err := artifact.WriteFile(filepath.Join(out, a.Name+".mp"), a); err != nil {
			return err
		}
	}
	return nil
}
