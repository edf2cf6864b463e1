package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/foxboron/go-pciutils/dumpfile"
	"github.com/foxboron/go-pciutils/pci"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/foxboron/go-pciutils/pci/ids"
	"github.com/foxboron/go-pciutils/pci/vdc"
	"github.com/foxboron/go-pciutils/sysfs"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	slots    []string
	ids      []string
	verbose  int
	hex      int
	file     string
	idsFile  string
	root     string
	logLevel string
}

func newLogger(level string) (logr.Logger, func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(z), func() { _ = z.Sync() }, nil
}

func (o *options) selector() (pci.Selector, error) {
	var sel pci.Selector
	for _, s := range o.slots {
		slot, err := bdf.ParseFilter(s)
		if err != nil {
			return sel, fmt.Errorf("-s %s: expected %s: %w", s, bdf.FilterFormat, err)
		}
		sel.Slots = append(sel.Slots, slot)
	}
	for _, s := range o.ids {
		id, err := vdc.Parse(s)
		if err != nil {
			return sel, fmt.Errorf("-d %s: expected %s: %w", s, vdc.Format, err)
		}
		sel.IDs = append(sel.IDs, id)
	}
	return sel, nil
}

// names prefers the installed pci.ids and falls back to the embedded table.
func (o *options) names(log logr.Logger) ids.Names {
	db, err := ids.Load(o.root, o.idsFile)
	if err != nil {
		log.V(1).Info("using the embedded ID database", "err", err.Error())
		return ids.Chain{ids.Embedded{}}
	}
	return ids.Chain{db, ids.Embedded{}}
}

func (o *options) functions(sel pci.Selector, log logr.Logger) ([]*pci.Function, error) {
	if o.file != "" {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dumpfile.Functions(f, sel, log, pci.WithLogger(log))
	}
	if (o.verbose > 0 || o.hex >= 3) && !sysfs.Privileged() {
		log.Info("not running as root, capabilities and config space past 0x40 are not readable")
	}
	s := sysfs.New(sysfs.WithRoot(o.root), sysfs.WithLogger(log))
	return s.Functions(sel, pci.WithLogger(log))
}

func render(w io.Writer, o *options, names ids.Names, functions []*pci.Function, log logr.Logger) error {
	out := bufio.NewWriter(w)
	for _, f := range functions {
		fmt.Fprintln(out, f.Describe(names, o.verbose))
		if o.hex > 0 {
			b, err := f.Config(o.hex)
			if err != nil {
				log.Error(err, "couldn't read config space", "function", f.Address.String())
			} else if err := pci.HexDump(out, b); err != nil {
				return err
			}
		}
		if o.hex > 0 || o.verbose > 0 {
			fmt.Fprintln(out)
		}
	}
	return out.Flush()
}

func newCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:          "golspci",
		Short:        "List PCI devices",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, sync, err := newLogger(o.logLevel)
			if err != nil {
				return err
			}
			defer sync()
			sel, err := o.selector()
			if err != nil {
				return err
			}
			functions, err := o.functions(sel, log)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o, o.names(log), functions, log)
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVarP(&o.slots, "slot", "s", nil, "show only devices in the selected slots, "+bdf.FilterFormat)
	flags.StringArrayVarP(&o.ids, "id", "d", nil, "show only devices with the selected IDs, "+vdc.Format)
	flags.CountVarP(&o.verbose, "verbose", "v", "be verbose, repeat for more detail")
	flags.CountVarP(&o.hex, "hex", "x", "dump config space in hex, repeat for more of it")
	flags.StringVarP(&o.file, "file", "F", "", "read captured lspci -x output or a raw config dump instead of sysfs")
	flags.StringVar(&o.idsFile, "ids-file", "", "path to pci.ids")
	flags.StringVar(&o.root, "sysfs", "/", "root of the sysfs tree")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
