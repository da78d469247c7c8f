// prompts.go - Prompts sent to the tutor model

package ai

import (
	"fmt"
	"strings"
)

// SystemMessage sets up the model as a step-by-step tutor
const SystemMessage = `You are an expert AI tutor specializing in educational content. Your role is to help students understand concepts by providing clear, step-by-step explanations.

Guidelines:
1. Always provide detailed, step-by-step solutions
2. Explain concepts clearly for educational understanding
3. Use proper mathematical notation when applicable
4. Break down complex problems into manageable steps
5. Provide context and reasoning for each step
6. Be encouraging and supportive in your tone
7. If analyzing an image, describe what you see and then solve the problem

For each response, provide:
- A clear, comprehensive solution
- Step-by-step breakdown of the problem-solving process
- Educational explanations that help understanding

Format your response to be educational and easy to follow.`

// DefaultImageQuestion is used when an image doubt comes without a question
const DefaultImageQuestion = "Please analyze this image and solve the problem shown."

// GetTextPrompt builds the prompt for a text question
func GetTextPrompt(question, subject string) string {
	return fmt.Sprintf(`Subject: %s
Question: %s

Please provide a comprehensive, step-by-step solution to this %s question. Make sure to:
1. Explain the approach clearly
2. Show all working steps
3. Provide educational context
4. Make it easy for a student to understand

Please format your response with clear sections and steps.`, subject, question, strings.ToLower(subject))
}

// GetImagePrompt builds the prompt that accompanies an uploaded image
func GetImagePrompt(question, subject string) string {
	if strings.TrimSpace(question) == "" {
		question = DefaultImageQuestion
	}

	return fmt.Sprintf(`Subject: %s
Question: %s

I've uploaded an image that contains a %s problem. Please:
1. Describe what you see in the image
2. Identify the specific problem or question
3. Provide a step-by-step solution
4. Explain each step clearly for educational understanding

Make your response comprehensive and educational.`, subject, question, strings.ToLower(subject))
}
