package skills

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/intent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
)

type recordingChatter struct {
	system, user string
	reply        string
	err          error
}

func (r *recordingChatter) Chat(_ context.Context, _ string, msgs []engine.Message, _ *engine.Schema) (string, error) {
	r.system, r.user = msgs[0].Content, msgs[1].Content
	if r.err != nil {
		return "", r.err
	}
	if r.reply == "" {
		return "advice", nil
	}
	return r.reply, nil
}

type fakeSearcher struct {
	topK int
	hits []retrieval.ScoredRecord
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, c retrieval.Collection, _ string, topK int) ([]retrieval.ScoredRecord, error) {
	if c != retrieval.QACollection {
		return nil, errors.New("wrong collection")
	}
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func hit(q, answer string) retrieval.ScoredRecord {
	md := map[string]string{}
	if answer != "" {
		md["answer"] = answer
	}
	return retrieval.ScoredRecord{Record: retrieval.Record{Text: q, Metadata: md}, Score: 0.9}
}

func newDispatcher(t *testing.T, chat Chatter, search Searcher) *agent.Dispatcher {
	t.Helper()
	reg, err := NewRegistry(Deps{Chat: chat, Model: "m", Search: search})
	require.NoError(t, err)
	return agent.NewDispatcher(reg)
}

func run(d *agent.Dispatcher, name string, args map[string]any) agent.Envelope {
	return d.Execute(context.Background(), intent.Resolved{Capability: name, Arguments: args})
}

func TestRegistry_HasEveryBuiltin(t *testing.T) {
	reg, err := NewRegistry(Deps{Chat: &recordingChatter{}, Search: &fakeSearcher{}})
	require.NoError(t, err)

	var names []string
	for _, d := range reg.Describe() {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
	}
	assert.Equal(t, []string{
		"predict_recipient_reaction",
		"advise_on_communication_style",
		"get_mbti_communication_advice",
		"refine_text_content",
		"evaluate_user_answer",
		"find_similar_questions",
		"find_similar_qa_pairs",
	}, names)
}

func TestEveryBuiltin_WellFormedArgsSucceed(t *testing.T) {
	d := newDispatcher(t, &recordingChatter{}, &fakeSearcher{hits: []retrieval.ScoredRecord{hit("q", "a")}})
	good := map[string]map[string]any{
		"predict_recipient_reaction":    {"recipient_description": "my strict manager", "situation_description": "I missed a deadline"},
		"advise_on_communication_style": {"recipient_description": "a new teammate", "my_message": "fix this now"},
		"get_mbti_communication_advice": {"mbti_type": "intj", "situation": "planning a trip"},
		"refine_text_content":           {"text_to_refine": "pls send asap", "refinement_mode": "soften"},
		"evaluate_user_answer":          {"question": "Tell me about a conflict", "user_answer": "I talked to them"},
		"find_similar_questions":        {"topic": "teamwork"},
		"find_similar_qa_pairs":         {"topic": "teamwork", "n": float64(1)},
	}
	for name, args := range good {
		env := run(d, name, args)
		assert.Nil(t, env.Error, "%s: %+v", name, env.Error)
		assert.NotNil(t, env.Result, name)
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	d := newDispatcher(t, &recordingChatter{}, &fakeSearcher{})
	env := run(d, "advise_on_communication_style", map[string]any{"recipient_description": "boss"})
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.InvalidArguments, env.Error.Kind)
	assert.Equal(t, []string{"my_message"}, env.Error.Fields)
}

func TestMBTI_WithAndWithoutMessage(t *testing.T) {
	chat := &recordingChatter{}
	d := newDispatcher(t, chat, &fakeSearcher{})

	run(d, "get_mbti_communication_advice", map[string]any{"mbti_type": " enfp ", "situation": "a surprise party"})
	assert.Contains(t, chat.user, "ENFP")
	assert.Contains(t, chat.user, "E/I, N/S, T/F, P/J")
	assert.NotContains(t, chat.user, "My message")

	run(d, "get_mbti_communication_advice", map[string]any{"mbti_type": "ISTJ", "situation": "late reply", "my_message": "why so slow?"})
	assert.Contains(t, chat.user, `"why so slow?"`)
	assert.Contains(t, chat.user, "Expected reaction")
}

func TestRefine_ModesAndAliases(t *testing.T) {
	for _, tc := range []struct{ mode, want string }{
		{"soften", "gentle tone"},
		{"부드럽게", "gentle tone"},
		{"Smoothen", "professional editor"},
		{"매끄럽게", "professional editor"},
		{"오타수정", "proofreader"},
		{"요약", "Summarize"},
		{"make it pirate", `"make it pirate"`},
	} {
		m, ok := lookupRefineMode(tc.mode)
		if !ok {
			chat := &recordingChatter{}
			run(newDispatcher(t, chat, &fakeSearcher{}), "refine_text_content", map[string]any{"text_to_refine": "hello", "refinement_mode": tc.mode})
			assert.Contains(t, chat.system, tc.want, tc.mode)
			continue
		}
		assert.Contains(t, m.role, tc.want, tc.mode)
	}
}

func TestCoach_ModelErrorBecomesExecutionFailure(t *testing.T) {
	d := newDispatcher(t, &recordingChatter{err: errors.New("rate limited")}, &fakeSearcher{})
	env := run(d, "evaluate_user_answer", map[string]any{"question": "q", "user_answer": "a"})
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ExecutionFailure, env.Error.Kind)
	assert.Contains(t, env.Error.Message, "rate limited")
}

func TestCoach_BlankReplyIsFailure(t *testing.T) {
	d := newDispatcher(t, &recordingChatter{reply: "   "}, &fakeSearcher{})
	env := run(d, "predict_recipient_reaction", map[string]any{"recipient_description": "x", "situation_description": "y"})
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ExecutionFailure, env.Error.Kind)
}

func TestSimilarQuestions(t *testing.T) {
	search := &fakeSearcher{hits: []retrieval.ScoredRecord{hit("Describe a failure", "x"), hit("Biggest weakness?", ""), hit("Why us?", "")}}
	d := newDispatcher(t, &recordingChatter{}, search)

	env := run(d, "find_similar_questions", map[string]any{"topic": "failure"})
	require.True(t, env.OK())
	assert.Equal(t, 3, search.topK)
	assert.Equal(t, []string{"Describe a failure", "Biggest weakness?", "Why us?"}, env.Result)

	run(d, "find_similar_questions", map[string]any{"topic": "failure", "n": 500})
	assert.Equal(t, maxResults, search.topK)
}

func TestSimilarQAPairs_DefaultAnswer(t *testing.T) {
	search := &fakeSearcher{hits: []retrieval.ScoredRecord{hit("Describe a failure", "I shipped late once"), hit("Why us?", "")}}
	env := run(newDispatcher(t, &recordingChatter{}, search), "find_similar_qa_pairs", map[string]any{"topic": "x", "n": 2})
	require.True(t, env.OK())
	assert.Equal(t, []QAPair{
		{Question: "Describe a failure", Answer: "I shipped late once"},
		{Question: "Why us?", Answer: NoStoredAnswer},
	}, env.Result)
}

func TestLookup_RetrievalUnavailable(t *testing.T) {
	search := &fakeSearcher{err: apperr.New(apperr.RetrievalUnavailable, "index offline")}
	env := run(newDispatcher(t, &recordingChatter{}, search), "find_similar_qa_pairs", map[string]any{"topic": "x"})
	require.NotNil(t, env.Error)
	assert.Equal(t, apperr.ExecutionFailure, env.Error.Kind)
	assert.Contains(t, env.Error.Message, "index offline")
}

func TestEmptyCollectionYieldsEmptyList(t *testing.T) {
	env := run(newDispatcher(t, &recordingChatter{}, &fakeSearcher{}), "find_similar_questions", map[string]any{"topic": "x"})
	require.True(t, env.OK())
	assert.Equal(t, []string{}, env.Result)
}
