package a2a

/*
Artifact is an output of a task, identified within the task by ArtifactID.
Successive updates for the same ArtifactID replace the artifact or append
parts to it depending on the update event's flags.
*/
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewTextArtifact(id string, text string) Artifact {
	return Artifact{
		ArtifactID: id,
		Parts:      []Part{NewTextPart(text)},
	}
}

func NewFileArtifact(id string, name string, mimeType string, data string) Artifact {
	return Artifact{
		ArtifactID: id,
		Name:       &name,
		Parts: []Part{
			{
				Kind: PartKindFile,
				File: &FileContent{
					MimeType: &mimeType,
					Bytes:    data,
				},
			},
		},
	}
}
