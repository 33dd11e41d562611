package feishu

// EventType identifies a drive.file.* event on the stream.
type EventType string

const (
	EventFileCreatedInFolder EventType = "drive.file.created_in_folder_v1"
	EventFileEdit            EventType = "drive.file.edit_v1"
	EventFileTitleUpdated    EventType = "drive.file.title_updated_v1"
	EventFileTrashed         EventType = "drive.file.trashed_v1"
)

// AllEventTypes is every event kind the engine subscribes handlers for.
var AllEventTypes = []EventType{
	EventFileCreatedInFolder,
	EventFileEdit,
	EventFileTitleUpdated,
	EventFileTrashed,
}

// FileEvent is a decoded drive.file.* event.
type FileEvent struct {
	Type      EventType
	FileToken string
	FileType  string
}

// eventFrame is the wire shape of a pushed event.
type eventFrame struct {
	Header struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
	} `json:"header"`
	Event eventPayload `json:"event"`
}

// eventPayload tolerates both file_token and document_id; the published
// schema varies between event kinds.
type eventPayload struct {
	FileToken  string `json:"file_token"`
	DocumentID string `json:"document_id"`
	FileType   string `json:"file_type"`
}

func (f *eventFrame) toFileEvent() *FileEvent {
	token := f.Event.FileToken
	if token == "" {
		token = f.Event.DocumentID
	}
	fileType := f.Event.FileType
	if fileType == "" {
		fileType = FileTypeDocx
	}
	return &FileEvent{
		Type:      EventType(f.Header.EventType),
		FileToken: token,
		FileType:  fileType,
	}
}
