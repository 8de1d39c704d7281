package format

// Option is a label/value pair for select inputs.
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ResponseShowTypeOptions lists how assistant answers may be presented.
var ResponseShowTypeOptions = []Option{
	{Label: "自动", Value: 1},
	{Label: "文本", Value: 2},
	{Label: "音频(自动播放)", Value: 3},
	{Label: "音频(不自动播放)", Value: 4},
}

// Chat message content types.
const (
	ContentAuto  = 1
	ContentText  = 2
	ContentAudio = 3
)

// Where speech synthesis runs.
const (
	SynthesizerClient = "client"
	SynthesizerServer = "server"
)

// OptionLabel finds the label of value in opts.
func OptionLabel(opts []Option, value int) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return Empty
}
