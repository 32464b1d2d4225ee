package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"spot/models"
	"spot/services/discover"
)

var (
	discoverCity       string
	discoverCountry    string
	discoverInterests  string
	discoverCategories string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery search and print the events as JSON",
	Example: `  spot discover --city Toronto --country Canada \
    --categories Music,Comedy --interests "jazz, rooftop bars"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, afero.NewOsFs())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.discover.Search(cmd.Context(), models.DiscoverQuery{
			City:       discoverCity,
			Country:    discoverCountry,
			Interests:  discover.SplitTerms(discoverInterests),
			Categories: discover.SplitTerms(discoverCategories),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", discover.UserMessage(err), err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models.DiscoverResponse{
			SearchID:     res.SearchID,
			Events:       res.Events,
			Total:        len(res.Events),
			Personalized: res.Personalized,
		})
	},
}

func init() {
	f := discoverCmd.Flags()
	f.StringVar(&discoverCity, "city", "", "city to search")
	f.StringVar(&discoverCountry, "country", "", "country name, e.g. \"United Kingdom\"")
	f.StringVar(&discoverInterests, "interests", "", "comma-separated interests used for personalization")
	f.StringVar(&discoverCategories, "categories", "", "comma-separated categories, one search per category")
}
