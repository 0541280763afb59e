package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"prdkit/pkg/ai"
	"prdkit/pkg/prompts"
)

type generateOptions struct {
	args     []string
	prompt   string
	system   string
	provider string
	raw      bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [intent]",
		Short: "Generate a PRD section with the configured AI provider",
		Long: `Generate renders a prompt template (or a raw --prompt) and sends it to the
configured provider.

Examples:
  prdkit generate background --arg keywords="在线文档协作"
  prdkit generate userStory --arg role=运营 --arg action=导出报表 --arg benefit=节省时间
  prdkit generate --prompt "Summarize X" --system "You are concise." --provider local`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringArrayVar(&opts.args, "arg", nil, "Template argument as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "Raw prompt; used when no intent is given")
	cmd.Flags().StringVar(&opts.system, "system", "", "System prompt for --prompt")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Override the configured provider")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print only the generated text")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions, args []string) error {
	prompt, system := opts.prompt, opts.system
	intent := ""
	if len(args) == 1 {
		intent = args[0]
		tplArgs, err := parseArgs(opts.args)
		if err != nil {
			return err
		}
		tpl, err := prompts.Build(intent, tplArgs)
		if err != nil {
			return err
		}
		prompt, system = tpl.User, tpl.System
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("an intent or --prompt is required")
	}

	cfg, err := root.load()
	if err != nil {
		return err
	}
	aiCfg := cfg.AIConfig()
	if opts.provider != "" {
		aiCfg.Provider = ai.Provider(opts.provider)
	}
	svc, err := ai.New(aiCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	content, err := svc.Generate(ctx, prompt, system)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.raw {
		fmt.Fprintln(out, content)
		return nil
	}
	title := "prompt"
	if intent != "" {
		title = intent
	}
	fmt.Fprintln(out, headerStyle.Render(title)+" "+mutedStyle.Render(fmt.Sprintf("%s · %s", svc.Provider(), svc.Model())))
	fmt.Fprintln(out, boxStyle.Render(bodyStyle.Render(content)))
	return nil
}

// parseArgs turns key=value pairs into template arguments.
func parseArgs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

