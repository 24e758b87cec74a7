// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

// SchemaID, TableID, FieldID, and RelationID are opaque handles: only
// equality and hashing are observable on them. They are distinct Go types
// so the compiler rejects comparing, say, a TableID against a FieldID.
type (
	SchemaID   int64
	TableID    int64
	FieldID    int64
	RelationID int64
)

// DataType preserves the dbr_fields.data_type code verbatim; the resolver
// never interprets it, it only flows through for display/decoding by callers.
type DataType uint32

// Published dbr_fields.data_type mapping. The catalog stores
// whatever numeric code it is given; these constants exist for readability
// at call sites, not validation.
const (
	DataTypeBigInt     DataType = 1
	DataTypeInt        DataType = 2
	DataTypeMediumInt  DataType = 3
	DataTypeSmallInt   DataType = 4
	DataTypeTinyInt    DataType = 5
	DataTypeBool       DataType = 6
	DataTypeFloat      DataType = 7
	DataTypeDouble     DataType = 8
	DataTypeVarChar    DataType = 9
	DataTypeChar       DataType = 10
	DataTypeText       DataType = 11
	DataTypeMediumText DataType = 12
	DataTypeBlob       DataType = 13
	DataTypeLongBlob   DataType = 14
	DataTypeMediumBlob DataType = 15
	DataTypeTinyBlob   DataType = 16
	DataTypeEnum       DataType = 17
	DataTypeDecimal    DataType = 18
	DataTypeDateTime   DataType = 19
	DataTypeBinary     DataType = 20
	DataTypeVarBinary  DataType = 21
)
