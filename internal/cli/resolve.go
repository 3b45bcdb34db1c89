package cli

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"auxdeck/internal/extract"
	"auxdeck/internal/progress"
	"auxdeck/internal/source"
	"auxdeck/internal/tui"
)

var (
	resolvePlaylist string
	resolvePlain    bool
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <source>",
		Short: "Resolve a track source to a playable location",
		Long: "Resolve classifies a track source as direct or extraction-required.\n" +
			"Video-hosting URLs are downloaded as audio via a managed yt-dlp install;\n" +
			"everything else passes through unchanged.",
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}

	cmd.Flags().StringVar(&resolvePlaylist, "playlist", "", "Playlist identifier scoping the extraction scratch directory")
	cmd.Flags().BoolVar(&resolvePlain, "plain", false, "Log progress lines instead of the interactive display")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rawSource := args[0]
	requestID := uuid.NewString()

	if resolvePlain || outputJSON {
		return runResolvePlain(cmd, a, rawSource, requestID)
	}
	return runResolveTUI(cmd, a, rawSource, requestID)
}

func runResolvePlain(cmd *cobra.Command, a *app, rawSource, requestID string) error {
	sink := progress.SinkFunc(func(ev progress.Event) {
		if !outputJSON {
			cmd.Printf("[%s] %s: %s\n", ev.RequestID, ev.Stage, ev.Message)
		}
	})
	resolver := newSourceResolver(a, sink)

	res, err := resolver.Resolve(cmd.Context(), rawSource, resolvePlaylist, requestID)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if res.SourceType == source.TypeDirect {
		cmd.Printf("direct: %s\n", res.Location)
	} else {
		cmd.Printf("extracted %q: %s\n", res.Title, res.Location)
	}
	return nil
}

func runResolveTUI(cmd *cobra.Command, a *app, rawSource, requestID string) error {
	model := tui.NewResolveModel(requestID, rawSource)

	var res source.ResolvedTrackSource
	err := tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) {
		sink := progress.SinkFunc(func(ev progress.Event) {
			send(tui.EventMsg{Event: ev})
		})
		resolver := newSourceResolver(a, sink)

		var resolveErr error
		res, resolveErr = resolver.Resolve(cmd.Context(), rawSource, resolvePlaylist, requestID)
		if resolveErr != nil {
			send(tui.ErrorMsg{Err: resolveErr})
			return
		}
		send(tui.DoneMsg{Title: res.Title, Location: res.Location})
	})
	return err
}

func newSourceResolver(a *app, sink progress.Sink) *source.Resolver {
	extractor := extract.NewExtractor(extract.CmdRunner{}, a.logger)
	return source.NewResolver(a.installer, extractor, a.paths, sink, a.logger)
}
