package dynamo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"prayday_bot/internal/domain/member"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

const (
	attrID           = "id"
	attrFirstName    = "firstName"
	attrChatID       = "telegramChatId"
	attrSubscribed   = "subscribed"
	attrReminderTime = "reminderTime"
	attrMemberCount  = "memberCount"
)

// memberItem mirrors an item of the members table.
type memberItem struct {
	PhoneNumber  string  `dynamodbav:"id"`
	FirstName    string  `dynamodbav:"firstName"`
	LastName     string  `dynamodbav:"lastName"`
	ChatID       *int64  `dynamodbav:"telegramChatId"`
	Subscribed   bool    `dynamodbav:"subscribed"`
	ReminderTime *string `dynamodbav:"reminderTime"`
	MemberCount  *int32  `dynamodbav:"memberCount"`
}

func (it memberItem) toMember() *member.Member {
	m := &member.Member{
		PhoneNumber: it.PhoneNumber,
		FirstName:   it.FirstName,
		LastName:    it.LastName,
		Subscribed:  it.Subscribed,
	}
	if it.ChatID != nil {
		m.ChatID = sql.NullInt64{Int64: *it.ChatID, Valid: true}
	}
	if it.ReminderTime != nil {
		m.ReminderTime = sql.NullString{String: *it.ReminderTime, Valid: true}
	}
	if it.MemberCount != nil {
		m.MemberCount = sql.NullInt32{Int32: *it.MemberCount, Valid: true}
	}
	return m
}

type MemberRepository struct {
	api               API
	tableName         string
	chatIDIndex       string
	reminderTimeIndex string
	log               *logrus.Entry
}

func NewMemberRepository(api API, tableName, chatIDIndex, reminderTimeIndex string, log *logrus.Entry) *MemberRepository {
	return &MemberRepository{
		api:               api,
		tableName:         tableName,
		chatIDIndex:       chatIDIndex,
		reminderTimeIndex: reminderTimeIndex,
		log:               log,
	}
}

func phoneKey(phoneNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: phoneNumber},
	}
}

func chatIDValue(chatID int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(chatID, 10)}
}

func (r *MemberRepository) GetStatus(ctx context.Context, phoneNumber string) (member.Status, error) {
	m, err := r.Get(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, member.ErrMemberNotFound) {
			return member.StatusUnrecognized, nil
		}
		return "", err
	}
	return member.StatusOf(m), nil
}

func (r *MemberRepository) Get(ctx context.Context, phoneNumber string) (*member.Member, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       phoneKey(phoneNumber),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting member by phone number: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, member.ErrMemberNotFound
	}
	var it memberItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("error decoding member: %w", err)
	}
	return it.toMember(), nil
}

func (r *MemberRepository) LinkChat(ctx context.Context, phoneNumber string, chatID int64, firstName string) error {
	holders, err := r.queryChat(ctx, chatID)
	if err != nil {
		return err
	}
	for _, h := range holders {
		if h.PhoneNumber == phoneNumber {
			continue
		}
		_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 phoneKey(h.PhoneNumber),
			UpdateExpression:    aws.String("REMOVE #chat"),
			ConditionExpression: aws.String("#chat = :chat"),
			ExpressionAttributeNames: map[string]string{
				"#chat": attrChatID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":chat": chatIDValue(chatID),
			},
		})
		var ccf *types.ConditionalCheckFailedException
		if err != nil && !errors.As(err, &ccf) {
			return fmt.Errorf("error unlinking chat from member: %w", err)
		}
		r.log.WithFields(logrus.Fields{
			"chat_id":  chatID,
			"phone":    phoneNumber,
			"previous": h.PhoneNumber,
		}).Warn("Chat was linked to another member, moved to the new phone number")
	}

	update := "SET #chat = :chat"
	names := map[string]string{"#chat": attrChatID}
	values := map[string]types.AttributeValue{":chat": chatIDValue(chatID)}
	if firstName != "" {
		update += ", #name = if_not_exists(#name, :name)"
		names["#name"] = attrFirstName
		values[":name"] = &types.AttributeValueMemberS{Value: firstName}
	}

	// Without a condition UpdateItem creates the item when it does not exist.
	_, err = r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       phoneKey(phoneNumber),
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("error linking chat to member: %w", err)
	}
	return nil
}

func (r *MemberRepository) queryChat(ctx context.Context, chatID int64) ([]memberItem, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.chatIDIndex),
		KeyConditionExpression: aws.String("#chat = :id"),
		ExpressionAttributeNames: map[string]string{
			"#chat": attrChatID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": chatIDValue(chatID),
		},
	})
}

func (r *MemberRepository) FindByChat(ctx context.Context, chatID int64) (*member.Member, error) {
	items, err := r.queryChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, member.ErrMemberNotFound
	}
	if len(items) > 1 {
		r.log.WithFields(logrus.Fields{
			"chat_id": chatID,
			"matches": len(items),
			"phone":   items[0].PhoneNumber,
		}).Warn("Chat ID is linked to several members, using the first match")
	}
	// The index may project only keys; read the full record from the table.
	return r.Get(ctx, items[0].PhoneNumber)
}

func (r *MemberRepository) SetSubscribed(ctx context.Context, phoneNumber string, subscribed bool) error {
	return r.updateField(ctx, phoneNumber, attrSubscribed, &types.AttributeValueMemberBOOL{Value: subscribed})
}

func (r *MemberRepository) SetReminderTime(ctx context.Context, phoneNumber string, reminderTime member.ReminderTime) error {
	return r.updateField(ctx, phoneNumber, attrReminderTime, &types.AttributeValueMemberS{Value: string(reminderTime)})
}

func (r *MemberRepository) SetMemberCount(ctx context.Context, phoneNumber string, memberCount int) error {
	return r.updateField(ctx, phoneNumber, attrMemberCount, &types.AttributeValueMemberN{Value: strconv.Itoa(memberCount)})
}

func (r *MemberRepository) updateField(ctx context.Context, phoneNumber, attr string, value types.AttributeValue) error {
	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 phoneKey(phoneNumber),
		UpdateExpression:    aws.String("SET #f = :v"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#f":  attr,
			"#id": attrID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": value,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return member.ErrMemberNotFound
		}
		return fmt.Errorf("error updating member %s: %w", attr, err)
	}
	return nil
}

func (r *MemberRepository) ListSubscribedAtTime(ctx context.Context, reminderTime member.ReminderTime) ([]*member.Member, error) {
	// The index covers the time bucket only; subscription is filtered after the key lookup.
	items, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.reminderTimeIndex),
		KeyConditionExpression: aws.String("#t = :t"),
		FilterExpression:       aws.String("#s = :subscribed"),
		ExpressionAttributeNames: map[string]string{
			"#t": attrReminderTime,
			"#s": attrSubscribed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":          &types.AttributeValueMemberS{Value: string(reminderTime)},
			":subscribed": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	members := make([]*member.Member, 0, len(items))
	for _, it := range items {
		if !it.Subscribed {
			continue
		}
		members = append(members, it.toMember())
	}
	return members, nil
}

func (r *MemberRepository) query(ctx context.Context, input *dynamodb.QueryInput) ([]memberItem, error) {
	items := make([]memberItem, 0)
	p := dynamodb.NewQueryPaginator(r.api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying index %s: %w", aws.ToString(input.IndexName), err)
		}
		var pageItems []memberItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("error decoding members: %w", err)
		}
		items = append(items, pageItems...)
	}
	return items, nil
}
