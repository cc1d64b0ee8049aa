/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goscriptwriter/internal/autosave"
	"goscriptwriter/internal/backend"
	"goscriptwriter/internal/config"
	"goscriptwriter/internal/crash"
	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/editor"
	"goscriptwriter/internal/export"
	"goscriptwriter/internal/layout"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/storage"
	"goscriptwriter/internal/version"
)

func usage() {
	fmt.Println("Go Script Writer — screenplay editing engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  goscriptwriter version|-v|--version              Show version")
	fmt.Println("  goscriptwriter new <dir> <script-id> <title>      Create a workspace and save version 1")
	fmt.Println("  goscriptwriter open <dir> <script-id> [n]         Open a saved version and print a summary")
	fmt.Println("  goscriptwriter edit <dir> <script-id> [n]         Edit a version interactively with autosave")
	fmt.Println("  goscriptwriter save <dir> <script-id> [--as-new]  Re-save the latest version (or as a new one)")
	fmt.Println("  goscriptwriter list <dir> <script-id>             List saved versions")
	fmt.Println("  goscriptwriter final <dir> <script-id> <n>        Mark version n as the completed draft")
	fmt.Println("  goscriptwriter export <dir> <script-id> <fmt>     Export latest version (txt|pdf|png)")
	fmt.Println("  goscriptwriter delete <dir> <script-id> <n|all>   Delete a version (all asks twice)")
	fmt.Println("  goscriptwriter serve                              Run the sync server")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var (
		root string
		doc  *domain.Document
		sess *editor.Session
	)
	defer func() {
		crash.Recover(root, func() ([]byte, error) {
			d := doc
			if sess != nil {
				// undo/redo swap the session's document out from under us
				d = sess.Doc
			}
			if d == nil {
				return nil, fmt.Errorf("no open document")
			}
			return script.Encode(d)
		})
	}()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) <= 1 {
		usage()
		return
	}

	ctx := context.Background()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Go Script Writer — screenplay editing engine")
		fmt.Println(version.String())
		return

	case "new":
		if len(args) < 5 {
			fmt.Println("new requires <dir>, <script-id> and <title>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		root = args[2]
		scriptID, title := args[3], args[4]
		l.Info("new script", slog.String("root", abs), slog.String("script_id", scriptID))
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "init store failed", err)
		}
		defer closeStore(l, st)
		doc = domain.NewEmptyDocument()
		doc.Title = title
		blob, err := script.Encode(doc)
		if err != nil {
			fail(l, "encode failed", err)
		}
		if err := st.SaveOverwrite(ctx, storage.VersionRecord{ScriptID: scriptID, WorkID: scriptID, Version: 1, Content: blob}); err != nil {
			fail(l, "save failed", err)
		}
		fmt.Println("Created script at", abs)
		return

	case "open":
		if len(args) < 4 {
			fmt.Println("open requires <dir> and <script-id>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		root = args[2]
		scriptID := args[3]
		want := 0
		if len(args) >= 5 {
			want, _ = strconv.Atoi(args[4])
		}
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		rec, err := loadVersion(ctx, st, scriptID, want)
		if err != nil {
			fail(l, "load failed", err)
		}
		doc = script.DecodeOrEmpty(rec.Content)
		fmt.Printf("Opened script: %s (version %d", doc.Title, rec.Version)
		if rec.IsFinal {
			fmt.Print(", final")
		}
		fmt.Println(")")
		fmt.Printf("Scenes: %d  Elements: %d\n", len(doc.Scenes), doc.ElementCount())
		fmt.Println("Root:", abs)
		return

	case "edit":
		if len(args) < 4 {
			fmt.Println("edit requires <dir> and <script-id>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		root = args[2]
		scriptID := args[3]
		want := 0
		if len(args) >= 5 {
			want, _ = strconv.Atoi(args[4])
		}
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		rec, err := loadVersion(ctx, st, scriptID, want)
		if err != nil {
			fail(l, "load failed", err)
		}
		sess = editor.NewSession(script.DecodeOrEmpty(rec.Content))
		cfg, token, err := config.Load()
		if err != nil {
			l.Warn("config load failed, using defaults", slog.Any("err", err))
		}
		var remote *backend.Client
		// Remote sync needs both an endpoint and credentials.
		if cfg.Backend.BaseURL != "" && token != "" {
			remote = backend.NewClient(cfg.Backend.BaseURL, token)
		}
		interval := time.Duration(cfg.Editor.AutosaveSeconds) * time.Second
		if err := runEditor(ctx, l, st, rec, sess, remote, interval, os.Stdin); err != nil {
			fail(l, "edit session failed", err)
		}
		return

	case "save":
		if len(args) < 4 {
			fmt.Println("save requires <dir> and <script-id>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		root = args[2]
		scriptID := args[3]
		asNew := len(args) >= 5 && args[4] == "--as-new"
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		rec, err := st.LatestVersion(ctx, scriptID, scriptID)
		if err != nil {
			fail(l, "load latest failed", err)
		}
		doc = script.DecodeOrEmpty(rec.Content)
		doc.LastSaved = time.Now()
		blob, err := script.Encode(doc)
		if err != nil {
			fail(l, "encode failed", err)
		}
		if asNew {
			n, err := st.SaveAsNewVersion(ctx, scriptID, scriptID, blob)
			if err != nil {
				fail(l, "save as new version failed", err)
			}
			fmt.Printf("Saved as version %d.\n", n)
			return
		}
		rec.Content = blob
		rec.UpdatedAt = time.Now()
		if err := st.SaveOverwrite(ctx, rec); err != nil {
			fail(l, "save failed", err)
		}
		fmt.Printf("Saved version %d in place.\n", rec.Version)
		return

	case "list":
		if len(args) < 4 {
			fmt.Println("list requires <dir> and <script-id>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		scriptID := args[3]
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		infos, err := st.ListVersions(ctx, scriptID, scriptID)
		if err != nil {
			fail(l, "list failed", err)
		}
		if len(infos) == 0 {
			fmt.Println("No saved versions.")
			return
		}
		for _, vi := range infos {
			mark := " "
			if vi.IsFinal {
				mark = "*"
			}
			fmt.Printf("%s v%d  %s  %d bytes\n", mark, vi.Version, vi.UpdatedAt.Local().Format("2006-01-02 15:04"), vi.Size)
		}
		return

	case "final":
		if len(args) < 5 {
			fmt.Println("final requires <dir>, <script-id> and <n>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		scriptID := args[3]
		n, err := strconv.Atoi(args[4])
		if err != nil || n <= 0 {
			fmt.Println("invalid version number:", args[4])
			os.Exit(2)
		}
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		if err := st.SetFinal(ctx, scriptID, scriptID, n, true); err != nil {
			fail(l, "set final failed", err)
		}
		fmt.Printf("Version %d marked as completed draft.\n", n)
		return

	case "export":
		if len(args) < 5 {
			fmt.Println("export requires <dir>, <script-id> and <txt|pdf|png>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		root = args[2]
		scriptID := args[3]
		format := strings.ToLower(args[4])
		outDir := abs
		if len(args) >= 6 {
			outDir, _ = filepath.Abs(args[5])
		}
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		rec, err := st.LatestVersion(ctx, scriptID, scriptID)
		if err != nil {
			fail(l, "load latest failed", err)
		}
		doc = script.DecodeOrEmpty(rec.Content)
		if err := runExport(doc, rec, format, outDir); err != nil {
			fail(l, "export failed", err)
		}
		fmt.Println("Exported to", outDir)
		return

	case "delete":
		if len(args) < 5 {
			fmt.Println("delete requires <dir>, <script-id> and <n|all>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		scriptID := args[3]
		st, err := storage.InitOrOpenStore(abs)
		if err != nil {
			fail(l, "open store failed", err)
		}
		defer closeStore(l, st)
		if args[4] == "all" {
			// Deleting the whole history is asked about twice.
			if !confirm(fmt.Sprintf("Delete ALL versions of %q?", scriptID)) {
				fmt.Println("Aborted.")
				return
			}
			if !confirm("This cannot be undone. Really delete everything?") {
				fmt.Println("Aborted.")
				return
			}
			n, err := st.DeleteAllVersions(ctx, scriptID, scriptID)
			if err != nil {
				fail(l, "delete all failed", err)
			}
			fmt.Printf("Deleted %d versions.\n", n)
			return
		}
		vnum, err := strconv.Atoi(args[4])
		if err != nil || vnum <= 0 {
			fmt.Println("invalid version number:", args[4])
			os.Exit(2)
		}
		if !confirm(fmt.Sprintf("Delete version %d of %q?", vnum, scriptID)) {
			fmt.Println("Aborted.")
			return
		}
		n, err := st.DeleteVersion(ctx, scriptID, scriptID, vnum)
		if err != nil {
			fail(l, "delete failed", err)
		}
		if n == 0 {
			fmt.Println("No such version.")
			return
		}
		fmt.Printf("Deleted version %d.\n", vnum)
		return

	case "serve":
		l.Info("starting sync server")
		if err := backend.Start(); err != nil {
			fail(l, "server failed", err)
		}
		return
	}

	usage()
}

func closeStore(l *slog.Logger, st *storage.Store) {
	if err := st.Close(); err != nil {
		l.Error("store close failed", slog.Any("err", err))
	}
}

func loadVersion(ctx context.Context, st *storage.Store, scriptID string, want int) (storage.VersionRecord, error) {
	if want > 0 {
		return st.GetVersion(ctx, scriptID, scriptID, want)
	}
	return st.LatestVersion(ctx, scriptID, scriptID)
}

// runEditor drives an interactive session: edits go through the session's
// history and index, dirtiness feeds the autosave coordinator, and flushes
// overwrite the opened version in the local store. A non-nil remote client
// additionally posts each flush to the sync server.
func runEditor(ctx context.Context, l *slog.Logger, st *storage.Store, rec storage.VersionRecord, sess *editor.Session, remote *backend.Client, interval time.Duration, input io.Reader) error {
	flush := func(ctx context.Context) error {
		blob, err := script.Encode(sess.Doc)
		if err != nil {
			return err
		}
		rec.Content = blob
		rec.UpdatedAt = time.Now()
		if err := st.SaveOverwrite(ctx, rec); err != nil {
			return err
		}
		if remote == nil {
			return nil
		}
		_, err = remote.Save(ctx, backend.SaveRequest{
			ScriptID: rec.ScriptID,
			WorkID:   rec.WorkID,
			Version:  rec.Version,
			IsFinal:  rec.IsFinal,
			EditMode: "full",
			Content:  blob,
			AutoSave: true,
		})
		return err
	}

	coord := autosave.New(flush, interval)
	coord.SetStateNotifier(func(s autosave.State) {
		l.Debug("autosave state", slog.String("state", s.String()))
	})
	sess.SetDirtyNotifier(coord.MarkDirty)
	coord.Start(ctx)
	defer func() {
		if err := coord.Stop(context.Background()); err != nil {
			l.Error("final flush failed", slog.Any("err", err))
			fmt.Println("Warning: final save failed:", err)
		}
	}()

	// New input lands after the last existing line.
	if n := len(sess.Doc.Scenes); n > 0 {
		last := &sess.Doc.Scenes[n-1]
		if m := len(last.Elements); m > 0 {
			sess.Cursor = editor.Position{ElementID: last.Elements[m-1].ID}
		} else {
			sess.Cursor = editor.Position{ElementID: last.ID}
		}
	}

	fmt.Printf("Editing %s (version %d).\n", sess.Doc.Title, rec.Version)
	fmt.Println("Commands: scene, action <text>, dialogue <name> <text>, undo, redo, status, save, quit")
	in := bufio.NewScanner(input)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")
		switch cmd {
		case "":
		case "scene":
			fmt.Println("Added scene", sess.AddScene(""))
		case "action":
			if _, err := sess.InsertAtCursor(domain.ContentElement{Type: domain.ElementAction, Text: rest}); err != nil {
				fmt.Println("Error:", err)
			}
		case "dialogue":
			name, text, _ := strings.Cut(rest, " ")
			if _, err := sess.InsertAtCursor(domain.ContentElement{Type: domain.ElementDialogue, Character: name, Text: text}); err != nil {
				fmt.Println("Error:", err)
			}
		case "undo":
			if !sess.Undo() {
				fmt.Println("Nothing to undo.")
			}
		case "redo":
			if !sess.Redo() {
				fmt.Println("Nothing to redo.")
			}
		case "status":
			fmt.Printf("Scenes: %d  Elements: %d  Lines: %d  State: %s\n",
				len(sess.Doc.Scenes), sess.Doc.ElementCount(), sess.Index.Total(), coord.State())
		case "save":
			if err := coord.SaveNow(ctx); err != nil {
				fmt.Println("Error:", err)
			} else {
				fmt.Println("Saved.")
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func runExport(doc *domain.Document, rec storage.VersionRecord, format, outDir string) error {
	cfg, _, err := config.Load()
	if err != nil {
		applog.WithComponent("cli").Warn("config load failed, using defaults", slog.Any("err", err))
	}
	switch format {
	case "txt":
		_, err := export.WriteText(doc, outDir, rec.Version, rec.IsFinal, time.Now())
		return err
	case "pdf":
		vd := layout.Build(doc, layoutOptions(cfg))
		return export.WritePDF(vd, filepath.Join(outDir, "script.pdf"), export.PDFOptions{
			FontFile: cfg.Editor.FontFile,
			Title:    doc.Title,
		})
	case "png":
		vd := layout.Build(doc, layoutOptions(cfg))
		return export.WritePNGPages(vd, outDir, export.PNGOptions{})
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func layoutOptions(cfg config.AppConfig) layout.Options {
	// Writing mode is left empty so the document's own view setting applies.
	var opts layout.Options
	switch cfg.Editor.PageSize {
	case "b5":
		opts.Page = layout.PageSpec{Size: layout.PageB5}
	case "script":
		opts.Page = layout.PageSpec{Size: layout.PageScript}
	default:
		opts.Page = layout.PageSpec{Size: layout.PageA4}
	}
	return opts
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(line))
	return ans == "y" || ans == "yes"
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
