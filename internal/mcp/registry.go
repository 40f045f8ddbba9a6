// Package mcp exposes the prediction and feedback workflows as Model
// Context Protocol tools so LLM clinical assistants can call them over
// stdio.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPredictionTools wires the tools every deployment carries.
// The lite server registers only these.
func registerPredictionTools(server *mcp.Server, tools *toolset) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "predict_disease",
		Description: "Generate ranked preliminary disease predictions from patient demographics, " +
			"vitals and symptoms. Returns up to three differentials with ICD-10 codes, confidence " +
			"scores, recommended tests and medications. Decision support only, not a diagnosis.",
	}, tools.handlePredictDisease)

	mcp.AddTool(server, &mcp.Tool{
		Name: "add_training_data",
		Description: "Add a manually curated case with its confirmed diagnosis to the training " +
			"or validation dataset for model retraining.",
	}, tools.handleAddTrainingData)

	mcp.AddTool(server, &mcp.Tool{
		Name: "export_training_data",
		Description: "Export accumulated training or validation samples to a timestamped JSON " +
			"file for offline retraining or backup.",
	}, tools.handleExportTrainingData)
}

// registerFeedbackTools wires the tools that need the prediction and
// feedback stores, so only the full server registers them.
func registerFeedbackTools(server *mcp.Server, tools *toolset) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "submit_prediction_feedback",
		Description: "Record a doctor's assessment of a prediction: whether it was accurate, the " +
			"confirmed diagnosis, and the tests and medications actually ordered. Accurate " +
			"feedback with a confirmed first-ranked diagnosis also yields a training sample.",
	}, tools.handleSubmitFeedback)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_feedback_summary",
		Description: "Summarize all doctor feedback for one prediction: assessment count, " +
			"accuracy rate, consensus and the most common confirmed diagnosis.",
	}, tools.handleFeedbackSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_feedback_stats",
		Description: "Aggregate feedback activity over a trailing window: totals, distinct " +
			"doctors and predictions, accuracy rate and average doctor confidence.",
	}, tools.handleFeedbackStats)
}
