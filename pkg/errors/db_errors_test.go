package errors

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  DatabaseErrorType
		wantCode  uint16
		retryable bool
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrorTypeNotFound, 0, false},
		{"wrapped not found", fmt.Errorf("get credential: %w", gorm.ErrRecordNotFound), ErrorTypeNotFound, 0, false},
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice'"}, ErrorTypeDuplicateKey, 1062, false},
		{"data too long", &mysql.MySQLError{Number: 1406, Message: "Data too long"}, ErrorTypeDataTooLong, 1406, false},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, ErrorTypeDeadlock, 1213, true},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}, ErrorTypeDeadlock, 1205, true},
		{"null column", &mysql.MySQLError{Number: 1048, Message: "Column cannot be null"}, ErrorTypeInvalidValue, 1048, false},
		{"gone away", &mysql.MySQLError{Number: 2006, Message: "gone away"}, ErrorTypeConnectionError, 2006, true},
		{"unmapped mysql", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, ErrorTypeUnknown, 1146, false},
		{"bad conn", driver.ErrBadConn, ErrorTypeConnectionError, 0, true},
		{"invalid conn", mysql.ErrInvalidConn, ErrorTypeConnectionError, 0, true},
		{"dial failure", errors.New("dial tcp 127.0.0.1:3306: Connection Refused"), ErrorTypeConnectionError, 0, true},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbErr := ClassifyDBError(tt.err)
			require.NotNil(t, dbErr)
			assert.Equal(t, tt.wantType, dbErr.Type)
			assert.Equal(t, tt.wantCode, dbErr.MySQLErrCode)
			assert.Equal(t, tt.retryable, dbErr.Retryable())
			assert.ErrorIs(t, dbErr, tt.err)
		})
	}
}

func TestClassifyDBError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyDBError(nil))
	assert.False(t, IsNotFoundError(nil))
}

func TestDatabaseError_Error(t *testing.T) {
	withCode := ClassifyDBError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.Contains(t, withCode.Error(), "MySQL error 1062")

	withoutCode := ClassifyDBError(gorm.ErrRecordNotFound)
	assert.Equal(t, "record not found: record not found", withoutCode.Error())
}

func TestIsHelpers(t *testing.T) {
	assert.False(t, IsNotFoundError(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsNotFoundError(gorm.ErrRecordNotFound))
	assert.True(t, IsConnectionError(driver.ErrBadConn))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
}

func TestDatabaseErrorType_String(t *testing.T) {
	assert.Equal(t, "duplicate_key", ErrorTypeDuplicateKey.String())
	assert.Equal(t, "connection", ErrorTypeConnectionError.String())
	assert.Equal(t, "unknown", ErrorTypeUnknown.String())
}
