package port

type Tokenizer interface {
	Tokenize(text string) []string

	TokenizeIdentifiers(identifiers []string) []string
}
