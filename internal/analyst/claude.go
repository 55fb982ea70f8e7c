package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/planforge/pkg/models"
)

const analyzePrompt = `You are a software project analyst. Analyze the user's project description and extract key information.

Respond with a JSON object containing:
- project_name: A concise name for the project
- project_type: The type of project (web_app, mobile_app, api, library, etc.)
- tech_stack: Suggested technology stack
- complexity: Estimated complexity (simple, moderate, complex)
- clarification_questions: List of questions to ask the user for clarification
- initial_epics: Suggested high-level features/epics

Be concise and practical.`

const refinePrompt = `You are a software project planning assistant helping to refine a project plan.

Your goal is to:
1. Understand the user's requirements thoroughly
2. Ask clarifying questions about unclear aspects
3. Help define the project structure (epics, stories, tasks)
4. Once you have enough information, indicate that the project is ready to finalize

When you have enough information, structure your response as JSON with:
- ready_to_finalize: true/false
- project_structure: {epics: [{title, description, stories: [{title, description, tasks: [...]}]}]}
- remaining_questions: []

Otherwise, ask 2-3 focused questions to gather more information.`

const generatePrompt = `Based on the conversation history, generate a comprehensive project structure.

Create a JSON structure with:
{
  "project": {
    "name": "Project Name",
    "description": "Detailed description",
    "tech_stack": {...}
  },
  "epics": [
    {
      "title": "Epic Title",
      "description": "Epic Description",
      "priority": 1-10,
      "stories": [
        {
          "title": "Story Title",
          "description": "Story Description",
          "user_story": "As a... I want... So that...",
          "acceptance_criteria": ["criterion 1", "criterion 2"],
          "story_points": 1-13,
          "tasks": [
            {
              "title": "Task Title",
              "description": "Task Description",
              "task_type": "setup|feature|bug|test|documentation|refactor|deployment",
              "estimated_hours": number,
              "technical_details": {...}
            }
          ]
        }
      ]
    }
  ]
}

Be thorough and practical. Break down the project into implementable tasks.`

// ClaudeConfig contains configuration for creating a Claude analyst.
type ClaudeConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// Claude is the Anthropic-backed Analyst.
type Claude struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClaude creates an Anthropic-backed analyst.
func NewClaude(cfg ClaudeConfig) (*Claude, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	return &Claude{inner: anthropic.NewClient(opts...), model: model}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock inference profile format.
// Bedrock uses cross-region inference profiles: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Might already be in Bedrock format or a custom model.
	return model
}

// chat sends one request and returns the concatenated text blocks.
func (c *Claude) chat(ctx context.Context, system string, messages []anthropic.MessageParam, maxTokens int64) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

func toMessageParams(history []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// Analyze extracts structured information from a project description. A
// reply that cannot be parsed degrades to a stub analysis carrying the raw
// response, so the conversation can still proceed.
func (c *Claude) Analyze(ctx context.Context, description string) (*Analysis, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(
			fmt.Sprintf("Analyze this project description:\n\n%s", description))),
	}

	response, err := c.chat(ctx, analyzePrompt, messages, 4096)
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSON(response)), &analysis); err != nil {
		return &Analysis{
			ProjectName:            "Untitled Project",
			ProjectType:            "unknown",
			TechStack:              map[string]any{},
			Complexity:             "moderate",
			ClarificationQuestions: []string{"Could you provide more details about the project?"},
			RawResponse:            response,
		}, nil
	}
	return &analysis, nil
}

// Refine continues the planning conversation. The reply signals readiness by
// embedding a JSON block with ready_to_finalize true.
func (c *Claude) Refine(ctx context.Context, history []models.Message, userMessage string) (*Refinement, error) {
	messages := append(toMessageParams(history),
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	response, err := c.chat(ctx, refinePrompt, messages, 8192)
	if err != nil {
		return nil, err
	}

	return parseRefinement(response), nil
}

// parseRefinement reads the readiness signal and structured plan block out
// of a refinement reply. Replies without a parseable JSON block are plain
// conversation turns.
func parseRefinement(response string) *Refinement {
	refinement := &Refinement{Response: response}
	if strings.Contains(response, "```json") {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err == nil {
			refinement.PlanData = parsed
			ready, _ := parsed["ready_to_finalize"].(bool)
			refinement.ReadyToFinalize = ready
		}
	}
	return refinement
}

// GeneratePlan produces the final work breakdown. Unlike Analyze, an
// unparseable reply is an error here: there is no useful degraded form of a
// plan.
func (c *Claude) GeneratePlan(ctx context.Context, history []models.Message) (*GeneratedPlan, error) {
	messages := append(toMessageParams(history),
		anthropic.NewUserMessage(anthropic.NewTextBlock("Please generate the complete project structure now.")))

	response, err := c.chat(ctx, generatePrompt, messages, 8192)
	if err != nil {
		return nil, err
	}

	var plan GeneratedPlan
	if err := json.Unmarshal([]byte(extractJSON(response)), &plan); err != nil {
		return nil, fmt.Errorf("parse project structure: %w", err)
	}
	return &plan, nil
}
