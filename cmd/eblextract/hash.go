package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jchantrell/eblextract/internal/binder"
	"github.com/spf13/cobra"
)

var (
	hash64    bool
	hashCheck string
)

var hashCmd = &cobra.Command{
	Use:   "hash [path...]",
	Short: "Compute archive name hashes or check a name list for collisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hashCheck != "" {
			return checkNameList(hashCheck)
		}
		if len(args) == 0 {
			return fmt.Errorf("no paths given, pass paths or --check <name list>")
		}

		for _, path := range args {
			h := binder.ComputeHash(path, hash64)
			if hash64 {
				fmt.Printf("%d\t0x%016X\t%s\n", h, h, path)
			} else {
				fmt.Printf("%d\t0x%08X\t%s\n", h, h, path)
			}
		}
		return nil
	},
}

// checkNameList reports every duplicate and collision in a name list instead of stopping at the first.
func checkNameList(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading name list: %w", err)
	}

	names := binder.NewHashDictionary(hash64)
	var duplicates, collisions int
	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}

		err := names.Add(name)
		var he *binder.HashError
		switch {
		case err == nil:
		case errors.As(err, &he) && errors.Is(err, binder.ErrDuplicate):
			duplicates++
			slog.Warn("Duplicate name", "name", name)
		case errors.As(err, &he):
			collisions++
			slog.Warn("Hash collision", "hash", he.Hash, "first", he.Existing, "second", he.Name)
		default:
			return err
		}
	}

	slog.Info("Name list checked", "path", path, "names", names.Len(), "duplicates", duplicates, "collisions", collisions)
	if collisions > 0 {
		return fmt.Errorf("%d hash collisions in %s", collisions, path)
	}
	return nil
}

func init() {
	hashCmd.Flags().BoolVar(&hash64, "64", false, "compute 64-bit hashes")
	hashCmd.Flags().StringVar(&hashCheck, "check", "", "check a name list for duplicates and collisions")
	rootCmd.AddCommand(hashCmd)
}
