// Package chatcmder provides the chat command for interactive sessions
// against a running loom server.
package chatcmder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/chat"
	"github.com/crosswirelabs/loom/pkg/config"
	"github.com/crosswirelabs/loom/pkg/dotdir"
	"github.com/crosswirelabs/loom/pkg/logger"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
)

type chatCommander struct {
	apiTarget  string
	model      string
	strategies []string
	fresh      bool
	debug      bool
	configDir  string

	logger *logger.Logger
}

const chatLongDesc string = `Start an interactive chat session against a running loom server.

Messages are sent to the server's /chat endpoint. The server assembles
context from the conversation's rolling summary, recent messages, and
retrieved knowledge before answering.

The active conversation is persisted in .loom/session.json so repeated
invocations continue where you left off. Use --new to start a fresh
conversation.

Reasoning strategies route the request through the orchestrated pipeline:
  standard, chain-of-thought, tree-of-thoughts, self-consistency,
  react, decomposition

Examples:
  loom chat
  loom chat --model llama3 --strategy chain-of-thought
  loom chat --new --strategy self-consistency --strategy react`

const chatShortDesc string = "Interactive chat against a running loom server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			if !cmd.Flags().Changed("model") {
				cmder.model = cfg.LLM.Model
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "t", "http://localhost:8080", "URL of the loom API server")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Generation model override")
	cmd.Flags().StringArrayVar(&cmder.strategies, "strategy", nil, "Reasoning strategy (repeatable)")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation, discarding the saved session")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ddm := dotdir.NewManager()

	if c.fresh {
		if err := ddm.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
	}

	conversationID := ""
	session, err := ddm.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if session != nil {
		conversationID = session.ConversationID
		fmt.Printf("Resuming conversation %s\n", conversationID)
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	reader := bufio.NewReader(os.Stdin)

	fmt.Println(`Type a message and press enter. Use "exit" or ctrl-d to quit.`)

	for {
		fmt.Print("you> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		content := strings.TrimSpace(line)
		if content == "" {
			continue
		}
		if content == "exit" || content == "quit" {
			return nil
		}

		resp, err := c.send(client, conversationID, content)
		if err != nil {
			c.logger.Error("chat request failed", zap.Error(err))
			fmt.Printf("error: %v\n", err)
			continue
		}

		// First reply establishes the conversation; persist it.
		if conversationID == "" {
			conversationID = resp.ConversationID
			if err := ddm.SaveSession(&dotdir.SessionState{
				ConversationID: conversationID,
				Model:          c.model,
				StartedAt:      time.Now().UTC(),
			}, c.configDir); err != nil {
				c.logger.Warn("persisting session", zap.Error(err))
			}
		}

		if c.debug && len(resp.Steps) > 0 {
			for _, step := range resp.Steps {
				fmt.Printf("  [step] %s\n", step)
			}
		}

		fmt.Printf("assistant> %s\n", resp.Content)

		if len(resp.Sources) > 0 {
			fmt.Println("sources:")
			for _, src := range resp.Sources {
				label := src.Title
				if label == "" {
					label = src.URI
				}
				fmt.Printf("  [%d] %s\n", src.Rank, label)
			}
		}

		if resp.Degraded {
			fmt.Println("(answer may be incomplete: some context or steps were unavailable)")
		}
	}
}

// send posts one message to the /chat endpoint.
func (c *chatCommander) send(client *http.Client, conversationID, content string) (*chat.Response, error) {
	req := chat.Request{
		ConversationID: conversationID,
		Content:        content,
		ModelID:        c.model,
	}

	if len(c.strategies) > 0 {
		kinds := make([]orchestrator.Kind, 0, len(c.strategies))
		for _, s := range c.strategies {
			kinds = append(kinds, orchestrator.Kind(s))
		}
		req.Reasoning = &chat.ReasoningConfig{Strategies: kinds}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpResp, err := client.Post(c.apiTarget+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", httpResp.StatusCode)
	}

	resp := &chat.Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return resp, nil
}
