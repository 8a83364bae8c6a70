package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tcgprice/internal/store"
)

type cardView struct {
	Card    *store.Card          `json:"card"`
	Groups  []string             `json:"groups"`
	Prices  []store.PriceQuote   `json:"prices"`
	History []store.HistoryPoint `json:"history"`
}

func newCardCommand(ctx *commandContext) *cobra.Command {
	var days int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "card <id>",
		Short: "Show a card with prices across its linked variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid card id %q", args[0])
			}
			return ctx.withRuntime(func(rt *runtime) error {
				view, err := loadCardView(cmd, rt.store, id, days)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, view)
				}
				printCardView(cmd, view)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Days of daily price history to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func loadCardView(cmd *cobra.Command, st *store.Store, id int64, days int) (cardView, error) {
	ctx := cmd.Context()
	card, err := st.GetCard(ctx, id)
	if err != nil {
		return cardView{}, err
	}
	if card == nil {
		return cardView{}, fmt.Errorf("card %d not found", id)
	}
	view := cardView{Card: card}
	if view.Groups, err = st.GroupsForCard(ctx, id); err != nil {
		return cardView{}, err
	}
	if view.Prices, err = st.UnifiedPrices(ctx, id); err != nil {
		return cardView{}, err
	}
	if view.History, err = st.PriceHistory(ctx, id, days); err != nil {
		return cardView{}, err
	}
	return view, nil
}

func printCardView(cmd *cobra.Command, view cardView) {
	out := cmd.OutOrStdout()
	card := view.Card
	fmt.Fprintf(out, "%s (#%d)\n", card.Name, card.ID)
	if card.ExtractedCode != "" {
		fmt.Fprintf(out, "  code:      %s\n", card.ExtractedCode)
	}
	if card.BaseName != "" && card.BaseName != card.Name {
		fmt.Fprintf(out, "  base name: %s\n", card.BaseName)
	}
	if len(view.Groups) > 0 {
		fmt.Fprintf(out, "  groups:    %s\n", strings.Join(view.Groups, ", "))
	}
	fmt.Fprintf(out, "  popular:   %s\n", yesNo(card.IsPopular))
	fmt.Fprintf(out, "  first seen %s\n", card.CreatedAt.Local().Format(time.DateOnly))

	if len(view.Prices) == 0 {
		fmt.Fprintln(out, "No prices recorded")
		return
	}
	printQuotes(cmd, view.Prices)

	if len(view.History) == 0 {
		return
	}
	rows := make([][]string, 0, len(view.History))
	for _, point := range view.History {
		rows = append(rows, []string{point.Day, point.ShopName, formatYen(point.Price)})
	}
	fmt.Fprintln(out, renderTable([]string{"Day", "Shop", "Price"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
}
