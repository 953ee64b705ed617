package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/relnotes/internal/config"
	"github.com/Sumatoshi-tech/relnotes/pkg/cache"
	"github.com/Sumatoshi-tech/relnotes/pkg/changelog"
)

// ErrEntryInvalid reports a cache entry that does not match the entry
// schema.
var ErrEntryInvalid = errors.New("cache entry does not match the entry schema")

// CacheCommand holds shared flags for the cache command group.
type CacheCommand struct {
	cacheDir string
	color    bool
	noColor  bool
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cc := &CacheCommand{}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the gathered-data cache",
	}

	cmd.PersistentFlags().StringVar(&cc.cacheDir, "cache-dir", "", "Cache directory overriding cache.dir")

	cmd.AddCommand(cc.newListCommand())
	cmd.AddCommand(cc.newShowCommand())
	cmd.AddCommand(cc.newVerifyCommand())
	cmd.AddCommand(cc.newClearCommand())

	return cmd
}

// openStore loads configuration and opens the entry store the cache
// subcommands operate on.
func (cc *CacheCommand) openStore(cmd *cobra.Command) (*cache.Store[changelog.Entry], error) {
	cfg, cfgErr := config.Load("")
	if cfgErr != nil {
		return nil, cfgErr
	}

	if cmd.Flags().Changed("cache-dir") {
		cfg.Cache.Dir = config.ExpandHome(cc.cacheDir)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)

	return cache.NewStore[changelog.Entry](cfg.Cache.Dir, logger, storeCodecs(cfg.Cache.Compress)...), nil
}

// storeCodecs orders the store codecs so the compression setting selects the
// write format while entries written under the other setting stay readable.
func storeCodecs(compress bool) []cache.Codec {
	plain := cache.NewJSONCodec()
	compressed := cache.NewLZ4Codec(plain)

	if compress {
		return []cache.Codec{compressed, plain}
	}

	return []cache.Codec{plain, compressed}
}

func (cc *CacheCommand) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached release ranges",
		Args:  requireArgs(0),
		RunE:  cc.runList,
	}
}

func (cc *CacheCommand) runList(cmd *cobra.Command, _ []string) error {
	store, err := cc.openStore(cmd)
	if err != nil {
		return err
	}

	infos, listErr := store.List()
	if listErr != nil {
		return listErr
	}

	out := cmd.OutOrStdout()

	if len(infos) == 0 {
		fmt.Fprintf(out, "No cache entries in %s\n", store.Dir())

		return nil
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	tbl.AppendHeader(table.Row{"Range", "Size", "Written", "Format"})

	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.Key,
			humanize.IBytes(uint64(info.Size)),
			humanize.Time(info.ModTime),
			entryFormat(info.Compressed),
		})
	}

	fmt.Fprintln(out, tbl.Render())

	return nil
}

// entryFormat names the on-disk format for the list table.
func entryFormat(compressed bool) string {
	if compressed {
		return "json+lz4"
	}

	return "json"
}

func (cc *CacheCommand) newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <range>",
		Short: "Print one cached entry as YAML",
		Args:  requireArgs(1),
		RunE:  cc.runShow,
	}
}

func (cc *CacheCommand) runShow(cmd *cobra.Command, args []string) error {
	store, err := cc.openStore(cmd)
	if err != nil {
		return err
	}

	entry, readErr := store.Read(args[0])
	if readErr != nil {
		return readErr
	}

	if entry == nil {
		return fmt.Errorf("%w for %q", cache.ErrNoEntry, args[0])
	}

	rendered, marshalErr := yaml.Marshal(entry)
	if marshalErr != nil {
		return fmt.Errorf("rendering entry: %w", marshalErr)
	}

	_, writeErr := cmd.OutOrStdout().Write(rendered)

	return writeErr
}

func (cc *CacheCommand) newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <range>",
		Short: "Check one cached entry against the entry schema",
		Args:  requireArgs(1),
		RunE:  cc.runVerify,
	}

	cmd.Flags().BoolVar(&cc.color, "color", false, "Force colored output")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (cc *CacheCommand) runVerify(cmd *cobra.Command, args []string) error {
	store, err := cc.openStore(cmd)
	if err != nil {
		return err
	}

	schema, schemaErr := changelog.EntrySchemaFS.ReadFile(changelog.EntrySchemaName)
	if schemaErr != nil {
		return fmt.Errorf("loading entry schema: %w", schemaErr)
	}

	switch {
	case cc.noColor:
		color.NoColor = true //nolint:reassign // intentional override of library global
	case cc.color:
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	problems, verifyErr := store.Verify(args[0], schema)
	if verifyErr != nil {
		return verifyErr
	}

	out := cmd.OutOrStdout()

	if len(problems) == 0 {
		color.New(color.FgGreen).Fprintf(out, "%s: entry is valid\n", args[0])

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "%s: entry is not valid\n", args[0])

	for _, problem := range problems {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", problem)
	}

	return ErrEntryInvalid
}

func (cc *CacheCommand) newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [range]",
		Short: "Remove cached entries",
		Args:  maxArgs(1),
		RunE:  cc.runClear,
	}
}

func (cc *CacheCommand) runClear(cmd *cobra.Command, args []string) error {
	store, err := cc.openStore(cmd)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if removeErr := store.Remove(args[0]); removeErr != nil {
			return removeErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed cache entry %s\n", args[0])

		return nil
	}

	removed, clearErr := store.Clear()
	if clearErr != nil {
		return clearErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries from %s\n", removed, store.Dir())

	return nil
}
