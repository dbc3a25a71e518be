package dynamo

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// condition holds a condition expression with its placeholder maps.
type condition struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// eqAndAfter builds "#f0 = :v0 AND #f1 > :v1" style conditions: attribute eqAttr
// must equal eqValue and numeric attribute gtAttr must be greater than gtValue.
func eqAndAfter(eqAttr, eqValue, gtAttr string, gtValue int64) condition {
	return condition{
		Expr: "#f0 = :v0 AND #f1 > :v1",
		Names: map[string]string{
			"#f0": eqAttr,
			"#f1": gtAttr,
		},
		Values: map[string]types.AttributeValue{
			":v0": &types.AttributeValueMemberS{Value: eqValue},
			":v1": &types.AttributeValueMemberN{Value: strconv.FormatInt(gtValue, 10)},
		},
	}
}
