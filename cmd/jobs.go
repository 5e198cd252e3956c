package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs <job-id or url>",
	Short: "Look up a job record by id or source URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		key := args[0]

		var rec *model.JobRecord
		if strings.Contains(key, "://") {
			rec, err = st.Get(ctx, key)
		} else {
			rec, err = st.GetByJobID(ctx, key)
		}
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				return eris.Errorf("no job found for %q", key)
			}
			return err
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return eris.Wrap(err, "jobs: marshal record")
		}
		fmt.Println(string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
