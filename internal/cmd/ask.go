package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/observability"
	"github.com/deshgyan/deshgyan/internal/output"
	"github.com/deshgyan/deshgyan/internal/prefs"
	"github.com/deshgyan/deshgyan/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question and print the encyclopedia article",
	Long: `Ask a question about Bangladesh and print the generated article with
its sources. The answer streams to the terminal as it arrives; pass
--no-stream to print it once complete.

Examples:
  deshgyan ask "পদ্মা সেতু"
  deshgyan ask --topic landmarks/sundarbans
  deshgyan ask "মুক্তিযুদ্ধ" --output-format markdown --out article.md`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("topic", "", "Ask a catalog topic by grid/item reference")
	askCmd.Flags().String("output-format", string(output.FormatText), "Output format: text, json, markdown")
	askCmd.Flags().Bool("no-stream", false, "Print the article only once it is complete")
	askCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	askCmd.Flags().String("out-dir", "", "Write output to a directory")
	askCmd.Flags().Int("width", 0, "Wrap width for text output (default: terminal width)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	topic, err := cmd.Flags().GetString("topic")
	if err != nil {
		return err
	}
	noStream, err := cmd.Flags().GetBool("no-stream")
	if err != nil {
		return err
	}
	width, err := cmd.Flags().GetInt("width")
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newAppRuntime(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer rt.Close() // nolint:errcheck // best-effort cleanup

	query, err := askQuery(args, topic, rt)
	if err != nil {
		return err
	}

	if outDir != "" {
		dir, err := ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(dir, fmt.Sprintf("%s.%s", sanitizeFilename(query), outputExtension(format)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	theme, err := rt.session.Themes.Get(ctx)
	if err != nil {
		theme = prefs.ThemeLight
	}

	streaming := format == output.FormatText && !noStream && sink.path == "-" && isTerminal(os.Stdout)
	view, err := runQuery(ctx, rt.session.Controller, query, streaming, sink.writer)
	if err != nil {
		return err
	}

	if view.State == session.StateError {
		renderer := output.NewArticleRenderer(os.Stderr, terminalWidth(os.Stderr, width), theme)
		fmt.Fprint(os.Stderr, renderer.RenderError(view.ErrorMessage, view.ErrorKind.Retryable()))
		ExitWithCode(observability.CLILogger, exitCodeForKind(view.ErrorKind), "search failed",
			&ailink.SearchError{Kind: view.ErrorKind, Message: view.ErrorMessage})
		return nil
	}

	return writeAnswer(sink.writer, format, view.Result, streaming, terminalWidth(sink.writer, width), theme)
}

func askQuery(args []string, topic string, rt *appRuntime) (string, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	topic = strings.TrimSpace(topic)
	switch {
	case query != "" && topic != "":
		return "", errors.New("pass either a query or --topic, not both")
	case topic != "":
		return rt.catalog.Resolve(topic)
	case query == "":
		return "", errors.New("a query or --topic is required")
	}
	return query, nil
}

// runQuery submits query through the controller and waits for it to
// settle. With stream set, partial text is echoed to w as it grows.
func runQuery(ctx context.Context, ctrl *session.Controller, query string, stream bool, w io.Writer) (session.View, error) {
	var printer *output.StreamPrinter
	if stream {
		printer = output.NewStreamPrinter(w)
		unsubscribe := ctrl.Subscribe(func(ev session.Event) {
			if ev.Type == session.EventChunk {
				_ = printer.Update(ev.View.PartialText)
			}
		})
		defer unsubscribe()
	}

	if !ctrl.Submit(ctx, query) {
		return session.View{}, errors.New("a query is required")
	}
	ctrl.Wait()

	if printer != nil {
		_ = printer.Finish()
	}
	if err := ctx.Err(); err != nil {
		return session.View{}, err
	}
	return ctrl.View(), nil
}

// writeAnswer prints the settled answer. When the text already streamed,
// only the image and sources are left to print.
func writeAnswer(w io.Writer, format output.Format, result *ailink.SearchResult, streamed bool, width int, theme prefs.Theme) error {
	if result == nil {
		return errors.New("search finished without a result")
	}

	switch format {
	case output.FormatJSON:
		return output.WriteJSON(w, result)
	case output.FormatMarkdown:
		_, err := fmt.Fprint(w, output.ArticleMarkdown(result))
		return err
	}

	renderer := output.NewArticleRenderer(w, width, theme)
	if streamed {
		tail := &ailink.SearchResult{Sources: result.Sources, ImageURL: result.ImageURL}
		_, err := fmt.Fprint(w, renderer.Render(tail))
		return err
	}
	_, err := fmt.Fprintln(w, renderer.Render(result))
	return err
}

func exitCodeForKind(kind ailink.ErrorKind) foundry.ExitCode {
	switch kind {
	case ailink.ErrorKindConfig:
		return foundry.ExitConfigInvalid
	case ailink.ErrorKindRateLimit, ailink.ErrorKindTransport, ailink.ErrorKindEmpty:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns override when positive, else the width of w when it
// is a terminal, else zero so renderers fall back to their default.
func terminalWidth(w io.Writer, override int) int {
	if override > 0 {
		return override
	}
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
