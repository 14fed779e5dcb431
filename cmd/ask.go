package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docchat/src/core/docqa"
	"docchat/src/fsutil"
	"docchat/src/log"
)

var askFlags struct {
	workspace string
	file      string
	documents []string
	session   string
	topK      int
	hybrid    bool
	sources   bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question about the documents of a workspace",
	Long: `Asks a single question and prints the answer. Without a question the
documents are summarized. With --file the file is ingested into a temporary
workspace first, which is deleted afterwards.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFlags.workspace, "workspace", "w", "", "ID of the workspace to ask")
	askCmd.Flags().StringVarP(&askFlags.file, "file", "f", "", "ingest this file into a temporary workspace and ask about it")
	askCmd.Flags().StringSliceVarP(&askFlags.documents, "document", "d", nil, "restrict retrieval to these document IDs")
	askCmd.Flags().StringVar(&askFlags.session, "session", "", "continue an existing chat session")
	askCmd.Flags().IntVarP(&askFlags.topK, "top-k", "k", 0, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askFlags.hybrid, "hybrid", false, "combine keyword and vector search")
	askCmd.Flags().BoolVarP(&askFlags.sources, "sources", "s", false, "print the source chunks of the answer")
	askCmd.MarkFlagsMutuallyExclusive("workspace", "file")
	askCmd.MarkFlagsOneRequired("workspace", "file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		question = docqa.SummaryQuestion
	}

	docIDs := make([]int64, 0, len(askFlags.documents))
	for _, s := range askFlags.documents {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid document id %q", s)
		}
		docIDs = append(docIDs, id)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var ws *docqa.Workspace
	if askFlags.file != "" {
		if ws, err = a.resolveWorkspace(ctx, "", "ask"); err != nil {
			return err
		}
		defer a.dropWorkspace(ws.ID)

		docs, err := a.ingestFiles(ctx, ws, fsutil.NewLocalFileStore(), []string{askFlags.file})
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("failed to upload %s", askFlags.file)
		}
		for _, doc := range docs {
			if doc.Status != docqa.StatusReady {
				return fmt.Errorf("failed to ingest %s: %s", doc.Filename, doc.Error)
			}
		}
	} else if ws, err = a.resolveWorkspace(ctx, askFlags.workspace, ""); err != nil {
		return err
	}

	answer, err := a.chatService().Ask(ctx, ws.ID, docqa.AskRequest{
		SessionID:      askFlags.session,
		Question:       question,
		DocumentIDs:    docIDs,
		TopK:           askFlags.topK,
		Hybrid:         askFlags.hybrid,
		IncludeSources: askFlags.sources,
	})
	if err != nil {
		return err
	}

	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func printAnswer(w io.Writer, answer *docqa.Answer) {
	fmt.Fprintln(w, answer.Content)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for i, src := range answer.Sources {
			fmt.Fprintf(w, "[%d] %s, page %d (score %.3f)\n", i+1, src.Filename, src.Page, src.Score)
			fmt.Fprintln(w, strings.TrimSpace(src.Content))
			fmt.Fprintln(w)
		}
	}
	if answer.SessionID != "" {
		fmt.Fprintf(w, "session: %s\n", answer.SessionID)
	}
}

func (a *app) dropWorkspace(id int64) {
	service := docqa.NewWorkspaceService(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index)
	if err := service.Delete(context.Background(), id); err != nil {
		log.Error(err, "Failed to delete temporary workspace", "workspaceID", id)
	}
}
