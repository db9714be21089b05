package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tudextra/inmopilot-ai/internal/config"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	"github.com/tudextra/inmopilot-ai/internal/llm"
)

type options struct {
	address      string
	propertyType string
	rooms        int
	price        string
	tone         string
	images       []string
	imageURLs    []string
	json         bool
	debug        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "generate-listing",
		Short: "Generate a property description and market price estimate with Gemini",
		Example: `  generate-listing --address "Calle Goya, Madrid" --type Piso --rooms 3 \
    --price 250.000€ --image salon.jpg --image cocina.jpg`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.WarnLevel
			if opts.debug {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)

			config.LoadEnvFile()
			if missing := config.CheckRequiredConfig(); len(missing) > 0 {
				return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			gen, err := llm.NewGeminiGenerator(cmd.Context(), cfg.GeminiAPIKey, llm.GeminiOptions{
				Model:             cfg.Model,
				MaxImages:         cfg.MaxImages,
				RequestsPerMinute: cfg.RequestsPerMinute,
			})
			if err != nil {
				return err
			}
			downloader := images.NewDownloader().WithMaxSize(cfg.MaxImageBytes)

			return run(cmd.Context(), cmd.OutOrStdout(), opts, gen, downloader, cfg.MaxImageBytes)
		},
	}

	defaults := listing.DefaultListingData()
	f := cmd.Flags()
	f.StringVar(&opts.address, "address", "", "address or area of the property")
	f.StringVar(&opts.propertyType, "type", defaults.PropertyType, "property type: "+strings.Join(listing.PropertyTypes, ", "))
	f.IntVar(&opts.rooms, "rooms", defaults.Rooms, "number of rooms")
	f.StringVar(&opts.price, "price", defaults.Price, "owner's desired price")
	f.StringVar(&opts.tone, "tone", defaults.Tone, "copywriting tone: "+strings.Join(listing.Tones, ", "))
	f.StringArrayVar(&opts.images, "image", nil, "path to a property photo (repeatable)")
	f.StringArrayVar(&opts.imageURLs, "image-url", nil, "URL of a property photo (repeatable)")
	f.BoolVar(&opts.json, "json", false, "print the result as JSON")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func (o *options) listingData() listing.ListingData {
	return listing.ListingData{
		Address:      o.address,
		PropertyType: o.propertyType,
		Rooms:        o.rooms,
		Price:        o.price,
		Tone:         o.tone,
	}.Normalize()
}

func run(ctx context.Context, out io.Writer, opts *options, gen llm.Generator, downloader *images.Downloader, maxImageBytes int64) error {
	data := opts.listingData()
	if err := data.Validate(); err != nil {
		return err
	}

	var imgs []images.Image
	for _, path := range opts.images {
		img, err := images.FromFile(path, maxImageBytes)
		if err != nil {
			return err
		}
		imgs = append(imgs, img)
	}
	if len(opts.imageURLs) > 0 {
		downloaded, err := downloader.DownloadAll(ctx, opts.imageURLs)
		if err != nil {
			return err
		}
		imgs = append(imgs, downloaded...)
	}

	result, err := gen.GenerateListing(ctx, imgs, data)
	if err != nil {
		return err
	}

	if opts.json {
		return printJSON(out, data, result)
	}
	printResult(out, result)
	return nil
}

func printJSON(out io.Writer, data listing.ListingData, result *listing.GenerationResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(struct {
		Listing listing.ListingData `json:"listing"`
		*listing.GenerationResult
	}{data, result})
}

func printResult(out io.Writer, result *listing.GenerationResult) {
	fmt.Fprintln(out, "=== Descripción del Anuncio ===")
	fmt.Fprintln(out, result.Description)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Precio de Mercado Sugerido ===")
	fmt.Fprintln(out, result.PriceSuggestion)

	if len(result.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Fuentes de Google Search:")
		for i, src := range result.Sources {
			if src.Title != "" {
				fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, src.Title, src.URI)
			} else {
				fmt.Fprintf(out, "  %d. %s\n", i+1, src.URI)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Tokens: %d input, %d output, %d total\n",
		result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens)
	fmt.Fprintf(out, "Cost: $%.6f\n", result.Usage.CostUSD)
}
