package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tcgprice/internal/preflight"
	"tcgprice/internal/store"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, binaries, shops and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
			for _, r := range results {
				kind := statusOK
				switch {
				case !r.Passed && r.Optional:
					kind = statusWarn
				case !r.Passed:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Database", colorize) {
				fmt.Fprintln(out, line)
			}
			dbFailed := false
			st, err := store.Open(cfg)
			if err != nil {
				dbFailed = true
				fmt.Fprintln(out, renderStatusLine("Store", statusError, err.Error(), colorize))
			} else {
				defer st.Close()
				version, verr := st.SchemaVersion(cmd.Context())
				cards, cerr := st.CountCards(cmd.Context())
				if err := errors.Join(verr, cerr); err != nil {
					dbFailed = true
					fmt.Fprintln(out, renderStatusLine("Store", statusError, err.Error(), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Store", statusOK, st.Path(), colorize))
					fmt.Fprintln(out, renderStatusLine("Schema version", statusInfo, version, colorize))
					fmt.Fprintln(out, renderStatusLine("Cards", statusInfo, strconv.Itoa(cards), colorize))
				}
			}

			if dbFailed || preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&network, "network", false, "Also fetch the first page of every enabled source")
	return cmd
}
