package entities

// FTSDiscriminator names which table an FTS row's free text came from.
type FTSDiscriminator string

const (
	FTSChunk      FTSDiscriminator = "chunk"
	FTSVLM        FTSDiscriminator = "vlm"
	FTSExtraction FTSDiscriminator = "extraction"
)

// FTSRow is one entry in the inverted full-text index.
type FTSRow struct {
	Discriminator FTSDiscriminator
	SourceID      string
	DocumentID    string
	Text          string
}
