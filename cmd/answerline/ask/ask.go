// Package askcmder provides the ask command for interactive question
// sessions against a running answerline server.
package askcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/answer"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/cliui"
	"github.com/papercomputeco/answerline/pkg/config"
	"github.com/papercomputeco/answerline/pkg/llm"
	"github.com/papercomputeco/answerline/pkg/logger"
	"github.com/papercomputeco/answerline/pkg/sse"
	"github.com/papercomputeco/answerline/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type askCommander struct {
	apiTarget      string
	ownerID        string
	conversationID string
	agentName      string
	render         bool
	debug          bool

	logger *zap.Logger
}

const askLongDesc string = `Start an interactive question session against a running answerline server.

Each question goes through the full agent pipeline: context assembly from
the conversation history, tool fan-out, and the configured model provider.
Answers stream back token by token over SSE.

Without --conversation a fresh conversation is created for the given owner.
Pass --conversation to continue an existing one.

Examples:
  answerline ask --owner me
  answerline ask --owner me --agent researcher --render
  answerline ask --owner me --conversation 2b1c... --api-target http://localhost:8080`

const askShortDesc string = "Interactive question session against a running server"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask",
		Short: askShortDesc,
		Long:  askLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
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

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", defaults.Client.APITarget, "Answerline API server URL")
	cmd.Flags().StringVarP(&cmder.ownerID, "owner", "o", "local", "Owner id for the conversation")
	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Existing conversation id to continue (default: create a new one)")
	cmd.Flags().StringVar(&cmder.agentName, "agent", "qa", "Agent role (qa, researcher, writer)")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render answers as markdown instead of raw token streaming")

	return cmd
}

func (c *askCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	fmt.Println()
	if c.conversationID == "" {
		conv, err := c.createConversation(client)
		if err != nil {
			return err
		}
		c.conversationID = conv.ID
		fmt.Printf("  %s New conversation %s\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render(utils.Truncate(conv.ID, 16)),
		)
	} else {
		fmt.Printf("  %s Continuing %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(utils.Truncate(c.conversationID, 16)),
		)
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Agent:"),
		cliui.NameStyle.Render(c.agentName),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		started := time.Now()
		if err := c.askAndStream(client, input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render(cliui.FormatDuration(time.Since(started))))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// createConversation creates a fresh conversation for the owner.
func (c *askCommander) createConversation(client *http.Client) (*chatstore.Conversation, error) {
	body, err := json.Marshal(map[string]string{"owner_id": c.ownerID})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.apiTarget + "/v1/conversations"
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var conv chatstore.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}

	return &conv, nil
}

// askAndStream sends a question to the streaming agent endpoint and prints
// the response as it arrives.
func (c *askCommander) askAndStream(client *http.Client, query string) error {
	reqBody := answer.Request{
		ConversationID: c.conversationID,
		OwnerID:        c.ownerID,
		AgentName:      c.agentName,
		Query:          query,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending question",
		zap.String("api_target", c.apiTarget),
		zap.String("conversation_id", c.conversationID),
		zap.String("agent", c.agentName),
	)

	url := c.apiTarget + "/v1/agent/qa/stream"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Print(assistantPrompt)

	reader := sse.NewReader(resp.Body)
	for {
		frame, err := reader.Next()
		if err != nil {
			fmt.Println()
			return fmt.Errorf("reading stream: %w", err)
		}
		if frame == nil {
			break
		}

		var ev answer.Event
		if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
			c.logger.Debug("failed to parse stream event",
				zap.Error(err),
				zap.String("data", frame.Data),
			)
			continue
		}

		switch ev.Type {
		case llm.EventMessage:
			if !c.render && ev.Text != "" {
				fmt.Print(ev.Text)
			}
		case llm.EventReasoning:
			if !c.render && ev.Text != "" {
				fmt.Print(cliui.DimStyle.Render(ev.Text))
			}
		case answer.EventDone:
			if c.render {
				rendered, err := cliui.RenderMarkdown(ev.Answer)
				if err != nil {
					c.logger.Debug("markdown render failed", zap.Error(err))
					fmt.Print(ev.Answer)
				} else {
					fmt.Print(rendered)
				}
			}
			return nil
		case answer.EventError:
			fmt.Println()
			return fmt.Errorf("agent error (code %d): %s", ev.Code, ev.Error)
		}
	}

	return nil
}
