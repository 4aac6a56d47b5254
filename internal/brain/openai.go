package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ent0n29/evafx/internal/actions"
	"github.com/ent0n29/evafx/internal/memory"
	"github.com/ent0n29/evafx/internal/observability"
	"github.com/ent0n29/evafx/internal/reliability"
)

const (
	// Reply returned when every completion attempt fails. Transport callers
	// still get HTTP 200 with this text.
	connectivityReply = "I'm experiencing connectivity issues at the moment. Please try again in a few moments."

	emptyContentReply = "I understand your message and I'm working on it."

	backoffCap = 8 * time.Second
)

type OpenAIOptions struct {
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

func (o OpenAIOptions) withDefaults() OpenAIOptions {
	if o.Model == "" {
		o.Model = "gpt-4-turbo-preview"
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 2 * time.Second
	}
	return o
}

// OpenAI completes conversations through the chat completions API with one
// execute_action tool wired to the action table.
type OpenAI struct {
	client  openai.Client
	opts    OpenAIOptions
	metrics *observability.Metrics
}

func NewOpenAI(apiKey string, opts OpenAIOptions, metrics *observability.Metrics, clientOpts ...option.RequestOption) *OpenAI {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, clientOpts...)
	return &OpenAI{
		client:  openai.NewClient(options...),
		opts:    opts.withDefaults(),
		metrics: metrics,
	}
}

func (b *OpenAI) Complete(ctx context.Context, history []memory.Turn, memories []memory.Record) (Reply, error) {
	system := fmt.Sprintf(systemPromptTemplate, buildMemoryContext(memories))

	turns := summarizeHistory(history)
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range turns {
		switch turn.Role {
		case memory.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case memory.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       b.opts.Model,
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(500),
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        "execute_action",
				Description: openai.String("Execute a specific action based on user request"),
				Parameters:  openai.FunctionParameters(actionToolParameters(actions.Names())),
			}),
		},
	}

	var completion *openai.ChatCompletion
	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
		res, err := b.client.Chat.Completions.New(actx, params)
		cancel()
		if err == nil && len(res.Choices) == 0 {
			err = fmt.Errorf("no choices in completion")
		}
		if err == nil {
			completion = res
			break
		}
		log.Printf("brain: completion attempt %d/%d failed: %v", attempt, b.opts.MaxAttempts, err)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && !reliability.IsRetryableHTTPStatus(apiErr.StatusCode) {
			// Auth and request errors never heal on retry.
			return Reply{Text: connectivityReply}, nil
		}
		if attempt == b.opts.MaxAttempts {
			return Reply{Text: connectivityReply}, nil
		}
		if b.metrics != nil {
			b.metrics.BrainRetries.Inc()
		}
		if werr := reliability.Wait(ctx, reliability.ExponentialBackoff(attempt-1, b.opts.RetryBase, backoffCap)); werr != nil {
			return Reply{Text: connectivityReply}, nil
		}
	}

	msg := completion.Choices[0].Message
	reply := Reply{Text: strings.TrimSpace(msg.Content)}
	if reply.Text == "" {
		reply.Text = emptyContentReply
	}

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != "execute_action" {
			continue
		}
		var args actionArguments
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			log.Printf("brain: bad tool arguments: %v", err)
			break
		}
		params := map[string]any{}
		if len(args.Params) > 0 {
			if err := json.Unmarshal(args.Params, &params); err != nil {
				log.Printf("brain: bad action params: %v", err)
				break
			}
		}
		reply.Action = &Invocation{Name: args.ActionName, Params: params}
		break
	}
	return reply, nil
}
