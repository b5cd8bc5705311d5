package graphrag

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/search"
)

// Fixed replies for questions that cannot be answered from the documents.
const (
	MsgEmptyQuery      = "Please provide a question."
	MsgInvalidSpace    = "Invalid space."
	MsgNoInformation   = "I couldn't find relevant information in the uploaded documents. Please try asking about something else or upload more documents."
	MsgNoRankedContext = "I couldn't find relevant information to answer your question."
	MsgCompletionError = "I encountered an error while processing your question. Please try again."
)

// Reasons attached to answers that did not come from the language model.
const (
	ReasonEmptyQuery       = "empty_query"
	ReasonInvalidSpace     = "invalid_space"
	ReasonNoContext        = "no_context"
	ReasonNoRankedContext  = "no_ranked_context"
	ReasonCompletionFailed = "completion_failed"
)

// Number of reranked documents kept, and how many of them become context.
const (
	RerankTopK       = 5
	ContextDocuments = 3
)

const answerPromptTemplate = `Based on the following context from study materials, answer the question clearly and concisely. If the answer cannot be found in the context, say so honestly.

Context:
%s

Question: %s

Provide a clear, detailed answer based only on the context above:`

// Answer is the reply to a question.
type Answer struct {
	// Text is the model's answer or one of the fixed Msg replies.
	Text string
	// Status is ok for a grounded answer, degraded when a step fell back or
	// nothing could be grounded, and failed for invalid input.
	Status core.Status
	// Reason names why Text is a fixed reply. Empty for model answers.
	Reason string
	// Sources are the documents given to the model as context.
	Sources []string
}

// Ask answers query from the documents of space. It never returns an error:
// every failure becomes a fixed reply with a non-ok Status.
func (e *Engine) Ask(ctx context.Context, space, query string, opts ...CallOption) *Answer {
	answer := e.ask(ctx, space, query, e.callOptions(opts))
	if e.metrics != nil {
		e.metrics.ObserveAsk(answer.Status, answer.Reason)
	}
	return answer
}

func (e *Engine) ask(ctx context.Context, space, query string, o *callOptions) *Answer {
	if strings.TrimSpace(query) == "" {
		return &Answer{Text: MsgEmptyQuery, Status: core.StatusFailed, Reason: ReasonEmptyQuery}
	}
	if core.ValidateSpace(space) != nil {
		return &Answer{Text: MsgInvalidSpace, Status: core.StatusFailed, Reason: ReasonInvalidSpace}
	}

	retrieval, err := e.Retrieve(ctx, space, query)
	if err != nil {
		e.logger.Error("retrieval rejected the question", "space", space, "err", err)
		return &Answer{Text: MsgCompletionError, Status: core.StatusDegraded, Reason: ReasonCompletionFailed}
	}
	status := retrieval.Status
	if retrieval.Empty() {
		return &Answer{Text: MsgNoInformation, Status: status.Worst(core.StatusDegraded), Reason: ReasonNoContext}
	}

	ranked, rerankStatus := search.Rerank(ctx, e.reranker, query, retrieval.Texts(), RerankTopK)
	if e.metrics != nil {
		e.metrics.ObserveRerank(rerankStatus)
	}
	status = status.Worst(rerankStatus)
	if len(ranked) == 0 {
		return &Answer{Text: MsgNoRankedContext, Status: status.Worst(core.StatusDegraded), Reason: ReasonNoRankedContext}
	}

	sources := ranked[:min(ContextDocuments, len(ranked))]
	text, err := e.complete(ctx, o, buildAnswerPrompt(query, sources))
	if err != nil {
		e.logger.Error("answer completion failed", "space", space, "err", err)
		return &Answer{Text: MsgCompletionError, Status: core.StatusDegraded, Reason: ReasonCompletionFailed, Sources: sources}
	}
	return &Answer{Text: text, Status: status, Sources: sources}
}

func (e *Engine) complete(ctx context.Context, o *callOptions, prompt string) (text string, err error) {
	if o.completer == nil {
		return "", fmt.Errorf("no completer configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panicked: %v", r)
		}
	}()

	reply, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// buildAnswerPrompt labels each document "Document i:" and asks for an
// answer grounded only in them.
func buildAnswerPrompt(query string, docs []string) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("Document %d: %s", i+1, doc)
	}
	return fmt.Sprintf(answerPromptTemplate, strings.Join(parts, "\n\n"), query)
}
