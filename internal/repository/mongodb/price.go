package mongodb

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// priceValue is the stored unit price. It is written as Decimal128 but also reads the
// double and integer prices found in documents created before this service.
type priceValue struct {
	decimal.Decimal
}

func (p priceValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := toDecimal128(p.Decimal)
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(d)
}

func (p *priceValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDecimal128:
		d, ok := raw.Decimal128OK()
		if !ok {
			return fmt.Errorf("malformed decimal128 price")
		}
		parsed, err := decimal.NewFromString(d.String())
		if err != nil {
			return fmt.Errorf("decode price %s: %w", d.String(), err)
		}
		p.Decimal = parsed
	case bson.TypeDouble:
		f, ok := raw.DoubleOK()
		if !ok {
			return fmt.Errorf("malformed double price")
		}
		p.Decimal = decimal.NewFromFloat(f)
	case bson.TypeInt32:
		i, ok := raw.Int32OK()
		if !ok {
			return fmt.Errorf("malformed int32 price")
		}
		p.Decimal = decimal.NewFromInt32(i)
	case bson.TypeInt64:
		i, ok := raw.Int64OK()
		if !ok {
			return fmt.Errorf("malformed int64 price")
		}
		p.Decimal = decimal.NewFromInt(i)
	case bson.TypeNull, bson.TypeUndefined:
		p.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s into a price", t)
	}
	return nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode price %s: %w", d.String(), err)
	}
	return out, nil
}
