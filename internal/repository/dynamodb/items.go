package dynamodb

import (
	"github.com/sakif/vaccine-portal/internal/model"
	"github.com/sakif/vaccine-portal/internal/repository"
)

// Item structs mirror what is physically stored. The attribute names match
// the ones the tagging service and earlier clients already use, so existing
// tables keep working.

type userItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Email       string `dynamodbav:"email"`
	Password    string `dynamodbav:"password,omitempty"`
	FirstName   string `dynamodbav:"firstName"`
	LastName    string `dynamodbav:"lastName"`
	DateOfBirth string `dynamodbav:"dateOfBirth,omitempty"`
	Gender      string `dynamodbav:"gender,omitempty"`
	Phone       string `dynamodbav:"phone,omitempty"`
	Address     string `dynamodbav:"address,omitempty"`
	Role        string `dynamodbav:"role,omitempty"`
	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

func newUserItem(u *model.User) userItem {
	k := repository.UserKey(u.Email)
	return userItem{
		PK:          k.PK,
		SK:          k.SK,
		Email:       u.Email,
		Password:    u.PasswordHash,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth,
		Gender:      string(u.Gender),
		Phone:       u.Phone,
		Address:     u.Address,
		Role:        string(u.Role),
		CreatedAt:   formatTime(u.CreatedAt),
		UpdatedAt:   formatTime(u.UpdatedAt),
	}
}

func (it userItem) toModel() *model.User {
	role := model.Role(it.Role)
	if role == "" {
		role = model.RoleUser
	}
	return &model.User{
		Email:        it.Email,
		PasswordHash: it.Password,
		FirstName:    it.FirstName,
		LastName:     it.LastName,
		DateOfBirth:  it.DateOfBirth,
		Gender:       model.Gender(it.Gender),
		Phone:        it.Phone,
		Address:      it.Address,
		Role:         role,
		CreatedAt:    parseTime(it.CreatedAt),
		UpdatedAt:    parseTime(it.UpdatedAt),
	}
}

type oauthItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Email      string `dynamodbav:"email"`
	Provider   string `dynamodbav:"provider"`
	ProviderID string `dynamodbav:"providerId"`
	FirstName  string `dynamodbav:"firstName"`
	LastName   string `dynamodbav:"lastName"`
	CreatedAt  string `dynamodbav:"createdAt"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
}

func (it oauthItem) toModel() *model.OAuthLink {
	return &model.OAuthLink{
		Email:      it.Email,
		Provider:   model.Provider(it.Provider),
		ProviderID: it.ProviderID,
		FirstName:  it.FirstName,
		LastName:   it.LastName,
		CreatedAt:  parseTime(it.CreatedAt),
		UpdatedAt:  parseTime(it.UpdatedAt),
	}
}

type chatSessionItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ID        string `dynamodbav:"id"`
	UserID    string `dynamodbav:"userId"`
	Title     string `dynamodbav:"title"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

func (it chatSessionItem) toModel() model.ChatSession {
	return model.ChatSession{
		ID:        it.ID,
		UserID:    it.UserID,
		Title:     it.Title,
		CreatedAt: parseTime(it.CreatedAt),
		UpdatedAt: parseTime(it.UpdatedAt),
	}
}

type chatMessageItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ID        string `dynamodbav:"id"`
	SessionID string `dynamodbav:"sessionId"`
	Role      string `dynamodbav:"role"`
	Content   string `dynamodbav:"content"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func (it chatMessageItem) toModel() model.ChatMessage {
	return model.ChatMessage{
		ID:        it.ID,
		SessionID: it.SessionID,
		Role:      model.MessageRole(it.Role),
		Content:   it.Content,
		CreatedAt: parseTime(it.CreatedAt),
	}
}

// questionItem is written by the tagging service, not by this package.
type questionItem struct {
	PK         string   `dynamodbav:"PK"`
	QuestionID string   `dynamodbav:"questionId"`
	Question   string   `dynamodbav:"question"`
	Tags       []string `dynamodbav:"tags"`
	Timestamp  string   `dynamodbav:"timestamp"`
}

func (it questionItem) toModel() model.Question {
	id := it.QuestionID
	if id == "" {
		id = it.PK
	}
	return model.Question{
		ID:        id,
		Question:  it.Question,
		Tags:      it.Tags,
		Timestamp: it.Timestamp,
	}
}
