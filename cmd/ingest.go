package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docchat/src/core/docqa"
	"docchat/src/fsutil"
	"docchat/src/log"
)

var ingestFlags struct {
	workspace string
	name      string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files or directories...]",
	Short: "Ingest local documents into a workspace",
	Long: `Uploads local files into a workspace and ingests them in this process,
without going through the job queue. Directories are searched recursively.
When --workspace is not given a new workspace named --name is created.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFlags.workspace, "workspace", "w", "", "ID of an existing workspace")
	ingestCmd.Flags().StringVar(&ingestFlags.name, "name", "documents", "name of the workspace to create")
	rootCmd.AddCommand(ingestCmd)
}

// collectQueue records submitted documents so they can be ingested synchronously
type collectQueue struct {
	ids []int64
}

func (q *collectQueue) Submit(_ context.Context, documentID int64) error {
	q.ids = append(q.ids, documentID)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ws, err := a.resolveWorkspace(ctx, ingestFlags.workspace, ingestFlags.name)
	if err != nil {
		return err
	}

	docs, err := a.ingestFiles(ctx, ws, fsutil.NewLocalFileStore(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "workspace %d (%s)\n", ws.ID, ws.Name)
	for _, doc := range docs {
		line := fmt.Sprintf("  %d  %-8s %s", doc.ID, doc.Status, doc.Filename)
		if doc.Status == docqa.StatusReady {
			line += fmt.Sprintf("  %s, %d pages, %d chunks", doc.Method, doc.Pages, doc.Chunks)
		} else if doc.Error != "" {
			line += "  " + doc.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// resolveWorkspace loads the workspace with the given ID, or creates one named name
func (a *app) resolveWorkspace(ctx context.Context, id, name string) (*docqa.Workspace, error) {
	service := docqa.NewWorkspaceService(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index)
	if id != "" {
		wsID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid workspace id %q", id)
		}
		return service.Get(ctx, wsID)
	}

	ws := &docqa.Workspace{Name: name}
	if err := service.Create(ctx, ws); err != nil {
		return nil, err
	}
	log.Info("Workspace created", "workspaceID", ws.ID, "name", ws.Name)
	return ws, nil
}

// ingestFiles uploads every file found under paths and ingests them one by one.
// Files that cannot be uploaded are logged and skipped.
func (a *app) ingestFiles(ctx context.Context, ws *docqa.Workspace, store fsutil.FileStore, paths []string) ([]docqa.Document, error) {
	files, err := store.Collect(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found")
	}
	log.Info("Collected files", "count", len(files), "bytes", fsutil.TotalSize(files))

	ingestor, err := a.newIngestor()
	if err != nil {
		return nil, err
	}
	queue := &collectQueue{}
	documents := docqa.NewDocumentService(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index, queue)

	for _, f := range files {
		if a.cfg.MaxUploadBytes > 0 && f.Size > a.cfg.MaxUploadBytes {
			log.Info("Skipping file over the upload limit", "path", f.Path, "size", f.Size, "limit", a.cfg.MaxUploadBytes)
			continue
		}
		data, err := store.ReadFile(f.Path)
		if err != nil {
			log.Error(err, "Failed to read file", "path", f.Path)
			continue
		}
		if _, err := documents.Upload(ctx, ws.ID, f.Name, data); err != nil {
			log.Error(err, "Failed to upload file", "path", f.Path)
		}
	}

	bar := progressbar.NewOptions(len(queue.ids),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for _, id := range queue.ids {
		if err := ingestor.Ingest(ctx, id); err != nil {
			log.Error(err, "Failed to ingest document", "documentID", id)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	docs := make([]docqa.Document, 0, len(queue.ids))
	for _, id := range queue.ids {
		doc, err := documents.Get(ctx, ws.ID, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}
