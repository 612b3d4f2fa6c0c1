package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"convertify/internal/api"
	"convertify/internal/formats"
	"convertify/internal/intake"
	"convertify/internal/queue"
)

const sniffLength = 512

func newFormatsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "formats [FILE...]",
		Short:       "List the target formats per media class, or for the given files",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return describeFiles(cmd, args, jsonOutput)
			}
			views := api.Formats()
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{view.MediaClass, strings.Join(view.Targets, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Class", "Targets"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type fileFormatsView struct {
	Name       string   `json:"name"`
	MediaType  string   `json:"mediaType"`
	MediaClass string   `json:"mediaClass"`
	Accepted   bool     `json:"accepted"`
	Targets    []string `json:"targets"`
}

func describeFiles(cmd *cobra.Command, paths []string, jsonOutput bool) error {
	views := make([]fileFormatsView, 0, len(paths))
	for _, path := range paths {
		view, err := describeFile(path)
		if err != nil {
			return err
		}
		views = append(views, view)
	}
	if jsonOutput {
		return writeJSON(cmd, views)
	}
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		targets := strings.Join(view.Targets, ", ")
		if !view.Accepted {
			targets = "not accepted"
		}
		rows = append(rows, []string{view.Name, valueOrDash(view.MediaType), view.MediaClass, valueOrDash(targets)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Type", "Class", "Targets"}, rows, nil))
	return nil
}

func describeFile(path string) (fileFormatsView, error) {
	file, err := os.Open(path)
	if err != nil {
		return fileFormatsView{}, err
	}
	defer file.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fileFormatsView{}, fmt.Errorf("read %s: %w", path, err)
	}
	head = head[:n]

	name := filepath.Base(path)
	declared := intake.DeclaredType(name)
	mediaType := declared
	if mediaType == "" {
		mediaType = formats.Sniff(head)
	}
	class := formats.Classify(declared, head)
	accepted, _ := intake.Accepts(queue.File{Name: name, MediaType: declared})

	targets := formats.AllowedTargets(class)
	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.String())
	}
	return fileFormatsView{
		Name:       name,
		MediaType:  mediaType,
		MediaClass: class.String(),
		Accepted:   accepted,
		Targets:    names,
	}, nil
}
