package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type familyItem struct {
	Description string `dynamodbav:"description"`
}

type FamilyRepository struct {
	api       API
	tableName string
}

func NewFamilyRepository(api API, tableName string) *FamilyRepository {
	return &FamilyRepository{api: api, tableName: tableName}
}

func (r *FamilyRepository) ListAll(ctx context.Context) ([]string, error) {
	families := make([]string, 0)
	p := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#d"),
		ExpressionAttributeNames: map[string]string{"#d": "description"},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error scanning families: %w", err)
		}
		var items []familyItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("error decoding families: %w", err)
		}
		for _, it := range items {
			if it.Description != "" {
				families = append(families, it.Description)
			}
		}
	}
	return families, nil
}
