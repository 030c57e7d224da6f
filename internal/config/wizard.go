package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard on stdin/stdout.
func NewWizard() *Wizard {
	return NewWizardWithIO(os.Stdin, os.Stdout)
}

// NewWizardWithIO creates a wizard reading answers from in and writing prompts to out.
func NewWizardWithIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the provider, model, search key and Telegram settings and
// returns the resulting config.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== RedClaw Onboarding ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	var provider string
	for {
		answer, err := w.ask("LLM provider (openrouter/openai/anthropic/gemini/zhipu/vllm)", ProviderOpenRouter)
		if err != nil {
			return nil, err
		}
		if _, ok := cfg.Provider(answer); !ok {
			fmt.Fprintf(w.out, "Error: unknown provider %q\n", answer)
			continue
		}
		provider = answer
		break
	}

	var pc ProviderConfig
	if provider == ProviderVLLM {
		for {
			base, err := w.ask("vLLM API base URL", "http://localhost:8000/v1")
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateAPIBase(base); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			pc.APIBase = base
			break
		}
		key, err := w.ask("vLLM API key (optional)", "")
		if err != nil {
			return nil, err
		}
		pc.APIKey = key
	} else {
		for {
			key, err := w.ask(fmt.Sprintf("%s API key", provider), "")
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateAPIKey(key, provider); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			pc.APIKey = key
			break
		}
	}
	setProvider(cfg, provider, pc)

	model, err := w.ask("Model name", cfg.Agents.Defaults.Model)
	if err != nil {
		return nil, err
	}
	cfg.Agents.Defaults.Model = strings.ToLower(model)

	workspace, err := w.ask("Workspace directory", cfg.Agents.Defaults.Workspace)
	if err != nil {
		return nil, err
	}
	cfg.Agents.Defaults.Workspace = workspace

	braveKey, err := w.ask("Brave Search API key (optional)", "")
	if err != nil {
		return nil, err
	}
	cfg.Tools.Web.Search.APIKey = braveKey

	fmt.Fprintln(w.out)
	for {
		token, err := w.ask("Telegram bot token (optional)", "")
		if err != nil {
			return nil, err
		}
		if token == "" {
			break
		}
		if err := validator.ValidateTelegramToken(token); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Channels.Telegram.Enabled = true
		cfg.Channels.Telegram.Token = token
		break
	}

	if cfg.Channels.Telegram.Enabled {
		allow, err := w.ask("Allowed Telegram user IDs/usernames, comma separated (empty allows everyone)", "")
		if err != nil {
			return nil, err
		}
		for _, entry := range strings.Split(allow, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				cfg.Channels.Telegram.AllowFrom = append(cfg.Channels.Telegram.AllowFrom, entry)
			}
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func setProvider(cfg *Config, name string, pc ProviderConfig) {
	switch name {
	case ProviderOpenRouter:
		cfg.Providers.OpenRouter = pc
	case ProviderOpenAI:
		cfg.Providers.OpenAI = pc
	case ProviderAnthropic:
		cfg.Providers.Anthropic = pc
	case ProviderGemini:
		cfg.Providers.Gemini = pc
	case ProviderZhipu:
		cfg.Providers.Zhipu = pc
	case ProviderVLLM:
		cfg.Providers.VLLM = pc
	}
}

// ask prints "question [default]: " and returns the trimmed answer or def.
func (w *Wizard) ask(question, def string) (string, error) {
	fmt.Fprintf(w.out, "%s [%s]: ", question, def)
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
