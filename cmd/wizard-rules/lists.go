package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"alert-wizard/internal/alertlist"
	"alert-wizard/internal/storage/s3"
)

type listsEnv struct {
	service *alertlist.Service
	bundles *alertlist.BundleStore
}

func openLists(ctx context.Context, e *env, withS3 bool) (*listsEnv, func(), error) {
	client, err := alertlist.NewGoRedisClient(ctx, e.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	lists := &listsEnv{
		service: alertlist.NewService(alertlist.NewRedisStore(client, e.cfg.Redis.KeyPrefix), e.logger),
	}

	if withS3 {
		if !e.cfg.S3.Enabled {
			client.Close()
			return nil, nil, fmt.Errorf("s3 is not enabled in the configuration")
		}
		objects, err := s3.NewClient(ctx, &e.cfg.S3, e.logger)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		lists.bundles = alertlist.NewBundleStore(objects, "alert-lists")
	}

	closeAll := func() {
		if err := client.Close(); err != nil {
			e.logger.Warn("failed to close redis client", "error", err)
		}
	}
	return lists, closeAll, nil
}

// bundleTarget is where a bundle is read from or written to: a named
// bundle in the bundle store, or a local file.
type bundleTarget struct {
	name  string
	file  string
	store *alertlist.BundleStore
}

func (t bundleTarget) save(ctx context.Context, bundle *alertlist.Bundle) (string, error) {
	if t.file != "" {
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(t.file, data, 0o644); err != nil {
			return "", err
		}
		return t.file, nil
	}
	return t.store.Save(ctx, t.name, bundle)
}

func (t bundleTarget) load(ctx context.Context) (*alertlist.Bundle, error) {
	if t.file != "" {
		data, err := os.ReadFile(t.file)
		if err != nil {
			return nil, err
		}
		return alertlist.DecodeBundle(data)
	}
	return t.store.Fetch(ctx, t.name)
}

// runListsExport exports the named lists, or every list when titles is
// empty.
func runListsExport(ctx context.Context, out io.Writer, svc *alertlist.Service, target bundleTarget, titles []string) int {
	if len(titles) == 0 {
		all, err := svc.All(ctx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		for _, l := range all {
			titles = append(titles, l.Title)
		}
	}

	bundle, err := svc.Export(ctx, titles)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	location, err := target.save(ctx, bundle)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	for _, title := range bundle.Titles() {
		fmt.Fprintf(out, "  OK    %s\n", title)
	}
	fmt.Fprintf(out, "\nExported %d list(s) to %s\n", len(bundle.Lists), location)
	return 0
}

func runListsImport(ctx context.Context, out io.Writer, svc *alertlist.Service, target bundleTarget, creatorUserID string) int {
	bundle, err := target.load(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	result, err := svc.Import(ctx, bundle, creatorUserID)
	if result != nil {
		for _, title := range result.Imported {
			fmt.Fprintf(out, "  OK    %s\n", title)
		}
		for _, title := range result.Skipped {
			fmt.Fprintf(out, "  SKIP  %s (already exists)\n", title)
		}
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "\nImported %d list(s), skipped %d\n", len(result.Imported), len(result.Skipped))
	return 0
}
