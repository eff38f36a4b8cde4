package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgent_AllDocumentedShapesYieldSameContent(t *testing.T) {
	shapes := map[string]string{
		"openai choices": `{"choices":[{"message":{"role":"assistant","content":"hello world"}}]}`,
		"output.text":    `{"output":{"text":"hello world"}}`,
		"output.choices": `{"output":{"choices":[{"message":{"content":[{"text":"hello world"}]}}]}}`,
		"top-level text": `{"text":"hello world"}`,
	}

	for name, payload := range shapes {
		t.Run(name, func(t *testing.T) {
			res := Agent([]byte(payload))
			assert.Equal(t, "hello world", res.Content)
			assert.Nil(t, res.Raw, "a matched strategy is not a fallback")
		})
	}
}

func TestAgent_PriorityOrder(t *testing.T) {
	// When both the OpenAI shape and output.text are present, the
	// OpenAI shape wins.
	payload := `{"choices":[{"message":{"content":"from choices"}}],"output":{"text":"from output"}}`
	res := Agent([]byte(payload))
	assert.Equal(t, "from choices", res.Content)

	// output.text beats the nested output.choices list.
	payload = `{"output":{"text":"direct","choices":[{"message":{"content":[{"text":"nested"}]}}]}}`
	res = Agent([]byte(payload))
	assert.Equal(t, "direct", res.Content)
}

func TestAgent_SkipsNonStringAndEmptyContent(t *testing.T) {
	// choices[0].message.content is a list here, so strategy 1 must not
	// match; the nested output shape should be used instead.
	payload := `{"choices":[{"message":{"content":[{"text":"x"}]}}],"output":{"text":"fallthrough"}}`
	res := Agent([]byte(payload))
	assert.Equal(t, "fallthrough", res.Content)

	// content items without a text field are skipped.
	payload = `{"output":{"choices":[{"message":{"content":[{"image":"u"},{"text":"second item"}]}}]}}`
	res = Agent([]byte(payload))
	assert.Equal(t, "second item", res.Content)
}

func TestAgent_UnrecognizedShapeFallsBackToRaw(t *testing.T) {
	payload := `{"outcome":{"body":"nothing recognizable"}}`
	res := Agent([]byte(payload))
	assert.Equal(t, payload, res.Content, "content carries the serialized raw payload")
	assert.Equal(t, []byte(payload), res.Raw, "raw exposed so callers can tell fallback from answer")
}

func TestChat_ExtractsFixedShape(t *testing.T) {
	payload := `{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":5},"model":"qwen-plus"}`
	res, err := Chat([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "assistant", res.Role)
	assert.Equal(t, "hello", res.Content)
	assert.Equal(t, "qwen-plus", res.Model)
	assert.JSONEq(t, `{"prompt_tokens":3,"completion_tokens":5}`, string(res.Usage))
}

func TestChat_MissingUsageAndModel(t *testing.T) {
	res, err := Chat([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(res.Usage))
	assert.Empty(t, res.Model)
}

func TestChat_MissingContentIsHardError(t *testing.T) {
	cases := []string{
		`{}`,
		`{"choices":[]}`,
		`{"choices":[{"message":{}}]}`,
		`{"choices":[{"message":{"content":[{"text":"list not string"}]}}]}`,
	}
	for _, payload := range cases {
		_, err := Chat([]byte(payload))
		var shapeErr *ShapeError
		require.ErrorAs(t, err, &shapeErr, "payload %s", payload)
	}
}

func TestImageURLs_TwoURLsInDocumentOrder(t *testing.T) {
	payload := `{"output":{"choices":[
		{"message":{"content":[{"image":"https://img/1.png"}]}},
		{"message":{"content":[{"image":"https://img/2.png"}]}}
	]}}`
	urls := ImageURLs([]byte(payload))
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, urls)
}

func TestImageURLs_MixedContentItems(t *testing.T) {
	payload := `{"output":{"choices":[{"message":{"content":[{"text":"caption"},{"image":"https://img/1.png"}]}}]}}`
	urls := ImageURLs([]byte(payload))
	assert.Equal(t, []string{"https://img/1.png"}, urls)
}

func TestImageURLs_MissingOutputIsEmptyNotError(t *testing.T) {
	assert.Empty(t, ImageURLs([]byte(`{}`)))
	assert.Empty(t, ImageURLs([]byte(`{"output":{}}`)))
	assert.Empty(t, ImageURLs([]byte(`{"output":{"choices":"not a list"}}`)))
}
