package skills

import (
	"context"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

const (
	defaultResults = 3
	maxResults     = 20
	// NoStoredAnswer is reported for reference questions without an answer.
	NoStoredAnswer = "no stored answer"
)

// QAPair is a reference interview question with its model answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type lookup struct {
	search Searcher
}

func topicParams() []capability.Param {
	return []capability.Param{
		{Name: "topic", Type: capability.String, Required: true, Description: "Topic keyword to search for"},
		{Name: "n", Type: capability.Integer, Default: defaultResults, Description: "Number of results"},
	}
}

func clampResults(n int) int {
	switch {
	case n <= 0:
		return defaultResults
	case n > maxResults:
		return maxResults
	}
	return n
}

func (l lookup) similarQuestions() capability.Descriptor {
	return capability.Descriptor{
		Name:        "find_similar_questions",
		Description: "Finds the stored interview questions most similar to a topic.",
		Params:      topicParams(),
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			hits, err := l.search.Search(ctx, retrieval.QACollection, a.String("topic"), clampResults(a.Int("n")))
			if err != nil {
				return nil, err
			}
			questions := make([]string, 0, len(hits))
			for _, h := range hits {
				questions = append(questions, h.Text)
			}
			return questions, nil
		},
	}
}

func (l lookup) similarQAPairs() capability.Descriptor {
	return capability.Descriptor{
		Name:        "find_similar_qa_pairs",
		Description: "Finds stored interview question and answer pairs similar to a topic.",
		Params:      topicParams(),
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			hits, err := l.search.Search(ctx, retrieval.QACollection, a.String("topic"), clampResults(a.Int("n")))
			if err != nil {
				return nil, err
			}
			pairs := make([]QAPair, 0, len(hits))
			for _, h := range hits {
				answer := h.Metadata["answer"]
				if answer == "" {
					answer = NoStoredAnswer
				}
				pairs = append(pairs, QAPair{Question: h.Text, Answer: answer})
			}
			return pairs, nil
		},
	}
}
