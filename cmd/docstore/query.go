package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobboard/backend/go-services/internal/config"
	"github.com/jobboard/backend/go-services/internal/docstore"
	"github.com/jobboard/backend/go-services/internal/docstore/service"
	"github.com/jobboard/backend/go-services/pkg/logger"
)

var (
	sortFlag  string
	limitFlag int64
	skipFlag  int64
)

var findCmd = &cobra.Command{
	Use:   "find <collection> [filter-json]",
	Short: "Print documents matching a filter as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseJSONArg(args, 1)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s docstore.Store) error {
			cur := s.Collection(args[0]).Find(filter).Skip(skipFlag).Limit(limitFlag)
			if sortFlag != "" {
				field, dir, err := parseSort(sortFlag)
				if err != nil {
					return err
				}
				cur = cur.Sort(field, dir)
			}
			docs, err := cur.ToArray(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, docs)
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count <collection> [filter-json]",
	Short: "Count documents matching a filter",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseJSONArg(args, 1)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s docstore.Store) error {
			n, err := s.Collection(args[0]).CountDocuments(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <collection> <document-json>",
	Short: "Insert one document and print its _id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseJSONArg(args, 1)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s docstore.Store) error {
			res, err := s.Collection(args[0]).InsertOne(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.InsertedID)
			return nil
		})
	},
}

func init() {
	findCmd.Flags().StringVar(&sortFlag, "sort", "", "Sort key as field or field:-1")
	findCmd.Flags().Int64Var(&limitFlag, "limit", 0, "Maximum documents to return (0 = no limit)")
	findCmd.Flags().Int64Var(&skipFlag, "skip", 0, "Documents to skip")
}

func withStore(ctx context.Context, fn func(docstore.Store) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel)
	opened, err := service.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer opened.Store.Close()
	return fn(opened.Store)
}

// parseJSONArg decodes args[i] as a JSON object; a missing argument is an
// empty filter.
func parseJSONArg(args []string, i int) (docstore.M, error) {
	if len(args) <= i || strings.TrimSpace(args[i]) == "" {
		return docstore.M{}, nil
	}
	var m docstore.M
	if err := json.Unmarshal([]byte(args[i]), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON object %q: %w", args[i], err)
	}
	if m == nil {
		m = docstore.M{}
	}
	return m, nil
}

func parseSort(s string) (string, int, error) {
	field, dir, found := strings.Cut(s, ":")
	if field == "" {
		return "", 0, fmt.Errorf("invalid sort %q", s)
	}
	if !found {
		return field, 1, nil
	}
	n, err := strconv.Atoi(dir)
	if err != nil || (n != 1 && n != -1) {
		return "", 0, fmt.Errorf("invalid sort direction %q", dir)
	}
	return field, n, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
