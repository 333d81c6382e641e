// Copyright 2018 Mark Wardle / Eldrix Ltd
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.
//

// Package snomed defines the wire types for SNOMED CT RF2 components -
// concepts, descriptions, relationships and reference set items - along
// with the small set of constants and derived projections shared by every
// other package in this module. Types here are marshalled with
// gogo/protobuf's reflection-based Marshal/Unmarshal, so field order and
// the `protobuf` struct tags on each type are load-bearing.
package snomed
