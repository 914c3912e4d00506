package main

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/config"
	"github.com/hanpama/fieldguide/internal/logger"
	"github.com/hanpama/fieldguide/internal/store"
)

func newSeedCmd() *cobra.Command {
	var (
		collection string
		file       string
		backend    string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a JSON array of documents into a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store") {
				cfg.Store.Backend = backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			log, err := logger.New(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, "open seed file")
				}
				defer f.Close()
				r = f
			}

			st, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(context.Background()) }()

			n, err := seed(cmd.Context(), st.Collection(collection), r)
			if err != nil {
				return err
			}
			log.Info("Seeded collection", zap.String("collection", collection), zap.Int("documents", n))
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d documents into %s\n", n, collection)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&collection, "collection", "c", "", "Target collection, e.g. animals or locations")
	flags.StringVarP(&file, "file", "f", "-", "JSON file holding an array of documents; - reads stdin")
	flags.StringVar(&backend, "store", "", "Store backend (overrides STORE_BACKEND)")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

// seed decodes a JSON array of objects from r and inserts them in order.
func seed(ctx context.Context, c store.Collection, r io.Reader) (int, error) {
	var docs []store.Record
	if err := jsoniter.NewDecoder(r).Decode(&docs); err != nil {
		return 0, errors.Wrap(err, "decode seed documents")
	}
	for i, doc := range docs {
		if doc == nil {
			return i, errors.Errorf("document %d is null", i)
		}
		if _, err := c.Insert(ctx, doc); err != nil {
			return i, errors.Wrapf(err, "insert document %d", i)
		}
	}
	return len(docs), nil
}
