package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bionlptag/pkg/registry"
)

func newSegmentCmd(g *globalFlags, stdout io.Writer) *cobra.Command {
	sf := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "segment [file|-]",
		Short: "Print sentence break offsets for a passage",
		Long: `Segment reads a passage the way Format 2 .txt files are read (each line
trimmed, lines joined by a single space) and prints one line per sentence:

  <break offset><TAB><sentence>

Offsets are cumulative rune counts of len(sentence)+1, exactly what the
aligner consumes, so this is the place to debug tokenizer/segmenter drift.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			cfg, err := loadConfig(cmd, nil, g, sf)
			if err != nil {
				return &exitError{code: exitConfig, err: err}
			}
			name := cfg.Components.Segmenter
			newSeg, ok := registry.Segmenter[name]
			if !ok {
				return &exitError{code: exitConfig, err: fmt.Errorf("segmenter %q not registered (have %v)", name, registry.Names(registry.Segmenter))}
			}
			seg, err := newSeg(cfg.Options.Segmenter)
			if err != nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("segmenter %s: %w", name, err)}
			}
			passage, err := readPassage(src)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			breaks, err := seg.Segment(cmd.Context(), passage)
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("segment: %w", err)}
			}
			return printBreaks(stdout, passage, breaks)
		},
	}
	cmd.Flags().StringVar(&sf.segmenter, "segmenter", "", "分句器名称 rule|punkt（覆盖配置）")
	return cmd
}

func readPassage(src string) (string, error) {
	var r io.Reader = os.Stdin
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for s.Scan() {
		lines = append(lines, strings.TrimSpace(s.Text()))
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, " "), nil
}

// printBreaks 按边界切出句子文本；越界边界原样打印并标注。
func printBreaks(w io.Writer, passage string, breaks []int) error {
	runes := []rune(passage)
	prev := 0
	for _, b := range breaks {
		end := b - 1
		if end > len(runes) || end < prev {
			if _, err := fmt.Fprintf(w, "%d\t<out of range>\n", b); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", b, string(runes[prev:end])); err != nil {
			return err
		}
		prev = b
	}
	return nil
}
