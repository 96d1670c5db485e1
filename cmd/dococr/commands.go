package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/export"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ingest"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/preprocess"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/storage"
)

type docFlags struct {
	engine       string
	language     string
	preset       string
	overrides    string
	noPreprocess bool
	parallel     bool
	maxParallel  int
	dpi          int
}

func (f *docFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.engine, "engine", "e", "", "OCR engine (default from config)")
	cmd.Flags().StringVarP(&f.language, "lang", "l", "", "OCR language, e.g. eng or eng+deu")
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "Preprocessing preset ("+strings.Join(preprocess.PresetNames(), ", ")+")")
	cmd.Flags().StringVar(&f.overrides, "overrides", "", "JSON file with preset overrides")
	cmd.Flags().BoolVar(&f.noPreprocess, "no-preprocess", false, "Skip image preprocessing")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "Recognize pages concurrently")
	cmd.Flags().IntVar(&f.maxParallel, "max-parallel", 0, "Concurrent page limit (0 = unlimited)")
	cmd.Flags().IntVar(&f.dpi, "dpi", 0, "Rasterization DPI for scanned pages")
}

func (f *docFlags) options() (pipeline.DocumentOptions, error) {
	o, err := loadOverrides(f.overrides)
	if err != nil {
		return pipeline.DocumentOptions{}, err
	}
	return pipeline.DocumentOptions{
		Engine:            f.engine,
		Language:          f.language,
		Preset:            f.preset,
		Overrides:         o,
		SkipPreprocessing: f.noPreprocess,
		Parallel:          f.parallel,
		MaxParallel:       f.maxParallel,
		DPI:               f.dpi,
	}, nil
}

func processCmd(flags *globalFlags) *cobra.Command {
	df := &docFlags{}
	var textOnly bool
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Extract text from one PDF or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			opts, err := df.options()
			if err != nil {
				return err
			}
			doc, err := a.Orchestrator.ProcessDocument(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if flags.save {
				results, store, err := a.OpenResults(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close() // nolint: errcheck
				loc, err := results.SaveDocument(cmd.Context(), doc)
				if err != nil {
					return err
				}
				a.Logger.Info("result saved", "location", loc)
			}
			if textOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
				return err
			}
			return writeJSON(flags, doc)
		},
	}
	df.bind(cmd)
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the combined text")
	return cmd
}

func pageCmd(flags *globalFlags) *cobra.Command {
	var (
		engine, language, preset, overrides string
		pre                                 bool
		pageNumber                          int
	)
	cmd := &cobra.Command{
		Use:   "page <image>",
		Short: "Recognize a single page image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			o, err := loadOverrides(overrides)
			if err != nil {
				return err
			}
			res, err := a.Orchestrator.ProcessPage(cmd.Context(), args[0], pipeline.PageOptions{
				Engine:     engine,
				Language:   language,
				Preprocess: pre,
				Preset:     preset,
				Overrides:  o,
				PageNumber: pageNumber,
			})
			if err != nil {
				return err
			}
			return writeJSON(flags, res)
		},
	}
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "OCR engine")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "OCR language")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Preprocessing preset")
	cmd.Flags().StringVar(&overrides, "overrides", "", "JSON file with preset overrides")
	cmd.Flags().BoolVar(&pre, "preprocess", false, "Preprocess the image before recognition")
	cmd.Flags().IntVar(&pageNumber, "page-number", 1, "Page number recorded in the result")
	return cmd
}

func pagesCmd(flags *globalFlags) *cobra.Command {
	var (
		engine, language, preset string
		pre, parallel            bool
		maxParallel              int
	)
	cmd := &cobra.Command{
		Use:   "pages <image>...",
		Short: "Recognize several page images, isolating failures per page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			res, err := a.Orchestrator.ProcessPages(cmd.Context(), args, pipeline.PagesOptions{
				Engine:      engine,
				Language:    language,
				Parallel:    parallel,
				MaxParallel: maxParallel,
				Preprocess:  pre,
				Preset:      preset,
			})
			if err != nil {
				return err
			}
			return writeJSON(flags, res)
		},
	}
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "OCR engine")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "OCR language")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Preprocessing preset")
	cmd.Flags().BoolVar(&pre, "preprocess", false, "Preprocess each image before recognition")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Recognize pages concurrently")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "Concurrent page limit (0 = unlimited)")
	return cmd
}

func batchCmd(flags *globalFlags) *cobra.Command {
	df := &docFlags{}
	var (
		merge      bool
		skipHidden bool
		xlsx       string
	)
	cmd := &cobra.Command{
		Use:   "batch <file|dir>...",
		Short: "Process several documents, optionally merged into one PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			opts, err := df.options()
			if err != nil {
				return err
			}
			var paths []string
			for _, arg := range args {
				if fi, err := os.Stat(arg); err == nil && fi.IsDir() {
					found, stats, err := ingest.ScanDirectory(cmd.Context(), arg, nil, skipHidden)
					if err != nil {
						return err
					}
					a.Logger.Info("directory scanned", "root", arg, "matched", stats.Matched, "failed", stats.Failed)
					paths = append(paths, found...)
					continue
				}
				paths = append(paths, arg)
			}
			batch, err := a.Orchestrator.ProcessBatch(cmd.Context(), paths, pipeline.BatchOptions{Merge: merge, Document: opts})
			if err != nil {
				return err
			}
			if flags.save {
				results, store, err := a.OpenResults(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close() // nolint: errcheck
				locs, err := results.SaveBatch(cmd.Context(), batch)
				if err != nil {
					return err
				}
				a.Logger.Info("batch saved", "locations", locs)
			}
			if xlsx != "" {
				data, err := export.NewService(nil, a.Logger).BatchXLSX(batch)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsx, data, 0o644); err != nil {
					return fmt.Errorf("write xlsx: %w", err)
				}
			}
			return writeJSON(flags, batch)
		},
	}
	df.bind(cmd)
	cmd.Flags().BoolVar(&merge, "merge", false, "Merge all PDFs into one document first")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip hidden files when scanning directories")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Also write an XLSX summary to this path")
	return cmd
}

func splitCmd(flags *globalFlags) *cobra.Command {
	var (
		pagesPerChunk int
		outDir        string
	)
	cmd := &cobra.Command{
		Use:   "split <pdf>",
		Short: "Split a PDF into chunks of N pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join(a.Config.Storage.OutputDir, "split")
			}
			if err := storage.EnsureDir(outDir); err != nil {
				return err
			}
			chunks, err := a.Orchestrator.SplitDocument(cmd.Context(), args[0], pagesPerChunk, outDir)
			if err != nil {
				return err
			}
			return writeJSON(flags, chunks)
		},
	}
	cmd.Flags().IntVarP(&pagesPerChunk, "pages", "n", 10, "Pages per chunk")
	cmd.Flags().StringVar(&outDir, "dir", "", "Directory for the chunks")
	return cmd
}

func enginesCmd(flags *globalFlags) *cobra.Command {
	var describe bool
	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List registered OCR engines and whether they work here",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			avail := a.Orchestrator.ListAvailableEngines(cmd.Context())
			if describe {
				var out []any
				for _, name := range a.Registry.Names() {
					out = append(out, a.Orchestrator.DescribeEngine(cmd.Context(), name))
				}
				return writeJSON(flags, out)
			}
			ok := color.New(color.FgHiGreen)
			bad := color.New(color.FgHiRed)
			for _, name := range a.Registry.Names() {
				if avail[name] {
					ok.Fprintf(cmd.OutOrStdout(), "  ✓ %s\n", name)
				} else {
					bad.Fprintf(cmd.OutOrStdout(), "  ✗ %s\n", name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&describe, "describe", false, "Print engine descriptors as JSON")
	return cmd
}

func preprocessCmd(flags *globalFlags) *cobra.Command {
	var preset, overrides string
	cmd := &cobra.Command{
		Use:   "preprocess <in> <out>",
		Short: "Run the preprocessing chain on one image and save the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			name := preset
			if name == "" {
				name = a.Config.Preprocess.Preset
			}
			p, ok := preprocess.LookupPreset(name)
			if !ok {
				a.Logger.Warn("unknown preset, using default", "preset", name)
				p, _ = preprocess.LookupPreset(preprocess.DefaultPreset)
			}
			o, err := loadOverrides(overrides)
			if err != nil {
				return err
			}
			if o != nil {
				p = p.Apply(*o)
			}
			rep, err := a.Preprocessor.ProcessFile(cmd.Context(), args[0], args[1], p)
			if err != nil {
				return err
			}
			return writeJSON(flags, rep.Metadata())
		},
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Preprocessing preset")
	cmd.Flags().StringVar(&overrides, "overrides", "", "JSON file with preset overrides")
	return cmd
}

func infoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Show service defaults, or metadata of a PDF or image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeJSON(flags, a.Orchestrator.Info())
			}
			info, err := a.Orchestrator.DocumentInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(flags, info)
		},
	}
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export stored results to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(flags)
			if err != nil {
				return err
			}
			results, store, err := a.OpenResults(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() // nolint: errcheck
			data, err := export.NewService(results, a.Logger).ExportRecentXLSX(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write xlsx: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("wrote %s", args[0]))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Most recent documents to include")
	return cmd
}
