package models

// WebhookPayload represents the incoming JSON payload from WhatsApp.
// Entry is a pointer so a missing "entry" key can be told apart from an
// empty list.
type WebhookPayload struct {
	Object string          `json:"object"`
	Entry  *[]WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value *WebhookValue `json:"value"`
	Field string        `json:"field"`
}

// WebhookValue carries the messages and/or statuses of one change. It is
// decoded member by member so one malformed message or receipt does not
// fail the whole delivery.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         *Metadata        `json:"metadata,omitempty"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []MessageStatus  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

// A value that is not an object reads as empty.
func (v *WebhookValue) UnmarshalJSON(data []byte) error {
	fields, err := rawObject(data)
	if err != nil {
		*v = WebhookValue{}
		return nil
	}
	*v = WebhookValue{
		MessagingProduct: scalarOr(fields["messaging_product"], ""),
		Metadata:         decodeOptional[Metadata](fields["metadata"]),
		Contacts:         decodeList[Contact](fields["contacts"]),
		Messages:         decodeList[InboundMessage](fields["messages"]),
		Statuses:         decodeList[MessageStatus](fields["statuses"]),
	}
	return nil
}

// InboundMessage is one element of value.messages. Scalars the platform may
// omit are pointers; numbers are accepted where strings are expected.
type InboundMessage struct {
	From      *string       `json:"from"`
	ID        *string       `json:"id"`
	Timestamp *string       `json:"timestamp"`
	Type      *string       `json:"type"`
	Text      *TextContent  `json:"text,omitempty"`
	Image     *MediaMessage `json:"image,omitempty"`
	Video     *MediaMessage `json:"video,omitempty"`
	Audio     *MediaMessage `json:"audio,omitempty"`
	Document  *MediaMessage `json:"document,omitempty"`
}

// UnmarshalJSON fails only when data is not an object. Members of the wrong
// shape read as absent.
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	fields, err := rawObject(data)
	if err != nil {
		return err
	}
	*m = InboundMessage{
		From:      scalar(fields["from"]),
		ID:        scalar(fields["id"]),
		Timestamp: scalar(fields["timestamp"]),
		Type:      scalar(fields["type"]),
		Text:      decodeOptional[TextContent](fields["text"]),
		Image:     decodeOptional[MediaMessage](fields["image"]),
		Video:     decodeOptional[MediaMessage](fields["video"]),
		Audio:     decodeOptional[MediaMessage](fields["audio"]),
		Document:  decodeOptional[MediaMessage](fields["document"]),
	}
	return nil
}

type TextContent struct {
	Body string `json:"body"`
}

// MediaMessage represents a media attachment in a WhatsApp message
type MediaMessage struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// MessageStatus is a sent/delivered/read receipt. Only logged.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

func (st *MessageStatus) UnmarshalJSON(data []byte) error {
	fields, err := rawObject(data)
	if err != nil {
		return err
	}
	*st = MessageStatus{
		ID:          scalarOr(fields["id"], ""),
		Status:      scalarOr(fields["status"], ""),
		Timestamp:   scalarOr(fields["timestamp"], ""),
		RecipientID: scalarOr(fields["recipient_id"], ""),
	}
	return nil
}
