package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"chronolookup-api/internal/model"
	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/uid"
)

func newSession() *service.Session {
	return service.NewSession(uid.New(), application.Config.Search.DebounceDelay)
}

func init() {
	// search
	searchCmd := &cobra.Command{
		Use:   "search KIND QUERY",
		Short: "Search items or mobs by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(args[1]) == "" {
				return service.ErrEmptyQuery
			}
			out, err := application.Search[kind].Search(cmd.Context(), newSession(), args[1])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, out)
		},
	}
	rootCmd.AddCommand(searchCmd)

	// details
	detailsCmd := &cobra.Command{
		Use:   "details KIND ID",
		Short: "Show the detail view of an item or mob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			view, err := application.Detail[kind].Fetch(cmd.Context(), newSession(), args[1])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, view)
		},
	}
	rootCmd.AddCommand(detailsCmd)

	// translate
	var selectedID string
	translateCmd := &cobra.Command{
		Use:   "translate KIND MODE TEXT",
		Short: "Translate an item or mob name between Chinese and English",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			mode, err := model.ParseTranslateMode(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess := newSession()
			if _, err := application.Translator.Suggest(ctx, sess, kind, mode, args[2]); err != nil {
				return fmt.Errorf("name search: %w", err)
			}
			return printJSON(os.Stdout, application.Translator.Translate(ctx, sess, kind, mode, args[2], selectedID))
		},
	}
	translateCmd.Flags().StringVar(&selectedID, "id", "", "Translate this id instead of matching the name")
	rootCmd.AddCommand(translateCmd)

	// suggest
	suggestCmd := &cobra.Command{
		Use:   "suggest KIND",
		Short: "Read search box states from stdin, one per line, and print debounced suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			return runSuggest(cmd.Context(), kind, bufio.NewScanner(os.Stdin))
		},
	}
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(ctx context.Context, kind model.Kind, lines *bufio.Scanner) error {
	p := application.Search[kind]
	sess := newSession()

	var mu sync.Mutex
	sink := func(out service.SearchOutcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "search %q failed: %v\n", out.Query, err)
			return
		}
		_ = printJSON(os.Stdout, out)
	}

	for lines.Scan() {
		p.Input(ctx, sess, lines.Text(), sink)
	}
	sess.Debouncer(kind).Wait()
	return lines.Err()
}
