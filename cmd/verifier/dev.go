//go:build dev

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aetherswarm/verifier/internal/digest"
	"github.com/aetherswarm/verifier/internal/protocol"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	devCommands = append(devCommands, newGenTaskCmd())
}

func newGenTaskCmd() *cobra.Command {
	var (
		questID string
		tamper  []int
	)

	cmd := &cobra.Command{
		Use:   "gen-task <payload.json>...",
		Short: "[dev] Build a verify_task message from JSON payload files",
		Long: `Read each JSON payload file, compute its canonical digest and print a
verify_task message with one data chunk per file. Chunks listed with --tamper
(zero-based) get a wrong hash so the failure path can be exercised.

NOTE: This command is only available in dev builds (go build -tags dev).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if questID == "" {
				questID = "quest-" + uuid.NewString()
			}
			return genTask(questID, tamper, args)
		},
	}

	cmd.Flags().StringVar(&questID, "quest", "", "Quest ID (default: random)")
	cmd.Flags().IntSliceVar(&tamper, "tamper", nil, "Chunk indexes to give a wrong hash")

	return cmd
}

func genTask(questID string, tamper []int, files []string) error {
	bad := make(map[int]bool, len(tamper))
	for _, i := range tamper {
		bad[i] = true
	}

	task := protocol.VerifyTask{
		Type:           protocol.TypeVerifyTask,
		QuestID:        questID,
		ExpectedHashes: []string{},
	}
	for i, f := range files {
		payload, err := readPayload(f)
		if err != nil {
			return err
		}
		h, err := digest.Hash(payload)
		if err != nil {
			return fmt.Errorf("hash %s: %w", f, err)
		}
		if bad[i] {
			h = digest.Aggregate([]string{h})
		}
		task.Data = append(task.Data, protocol.DataChunk{
			Source:    filepath.Base(f),
			Data:      json.RawMessage(payload),
			Hash:      h,
			Timestamp: uint64(time.Now().Unix()),
		})
		task.ExpectedHashes = append(task.ExpectedHashes, h)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(task)
}
