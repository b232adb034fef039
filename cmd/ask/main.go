package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/vischat/internal/chat"
	"github.com/RichardoC/vischat/internal/config"
	"github.com/RichardoC/vischat/internal/conversation"
	"github.com/RichardoC/vischat/internal/llm"
	"github.com/RichardoC/vischat/internal/logger"
	"github.com/RichardoC/vischat/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	imagePath string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [flags] <message>",
	Short: "Send a single message to the configured model",
	Long: `ask sends one turn, with an optional png or jpeg image, to the same
chat-completions deployment the web server uses and prints the reply.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&imagePath, "image", "i", "", "png or jpeg image to attach")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewLogger(debug || cfg.Debug())
	defer log.Sync()

	in := llm.Input{Text: strings.Join(args, " ")}
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		image, err := models.NewImagePart(data)
		if err != nil {
			return err
		}
		in.Image = &image
	}

	llmService, err := llm.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	assembler := llm.NewAssembler(llm.AssemblerOptions{
		SystemPrompt: cfg.SystemPrompt,
		UserPreamble: cfg.UserPreamble,
		AllowImages:  cfg.AllowImages,
	})

	reply, err := chat.New(assembler, llmService, log).Send(context.Background(), conversation.NewMemory(), in)
	if err != nil {
		log.Debug("ask failed", zap.Error(err))
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Text())
	return nil
}
