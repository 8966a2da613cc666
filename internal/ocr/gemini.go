package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// receiptExtractionPrompt asks the model for exactly the fields the
// return form can autofill
const receiptExtractionPrompt = `You are analyzing a photographed purchase receipt. Carefully read all text in the image and extract the following information:

1. **Store Name**: The merchant or business name, usually the largest text at the top of the receipt. Examples: "Target", "Best Buy", "Nordstrom".

2. **Purchase Date**: The transaction date on the receipt, in MM/DD/YYYY format.

3. **Return By Date**: If the receipt states a return deadline or return policy window with a concrete date, that date in MM/DD/YYYY format. Use null if no deadline is printed.

4. **Amount**: The final total as a number (e.g., 45.50 for $45.50).

Return ONLY valid JSON in this exact format:
{
  "storeName": "Store Name",
  "purchaseDate": "MM/DD/YYYY",
  "returnByDate": "MM/DD/YYYY",
  "amount": 0.00
}

Important:
- Dates must be in MM/DD/YYYY format
- The amount must be a number (not a string)
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Extract analyzes a compressed receipt image and returns whatever fields
// the model could read. The image pipeline always hands us a JPEG.
func (g *Gemini) Extract(ctx context.Context, imageData []byte) (*PartialFields, error) {
	parts := []genai.Part{
		genai.ImageData("jpeg", imageData),
		genai.Text(receiptExtractionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	fields, err := parseExtractionJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}

	return fields, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
