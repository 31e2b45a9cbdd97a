package shopify

// bulkOperationRunQueryMutation submits a bulk export job. The export query
// itself is passed as the $query variable.
const bulkOperationRunQueryMutation = `
mutation bulkOperationRunQuery($query: String!) {
  bulkOperationRunQuery(query: $query) {
    bulkOperation {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}
`

// bulkOperationStatusQuery polls a bulk operation by its global id
const bulkOperationStatusQuery = `
query bulkOperationStatus($id: ID!) {
  node(id: $id) {
    ... on BulkOperation {
      id
      status
      errorCode
      objectCount
      url
    }
  }
}
`

// variantSnapshotQuery is the bulk export document. Nested connections
// (collections, inventory levels) are emitted by Shopify as separate JSONL
// lines carrying a __parentId back-reference.
const variantSnapshotQuery = `
{
  productVariants {
    edges {
      node {
        id
        sku
        title
        price
        image {
          url
        }
        selectedOptions {
          name
          value
        }
        product {
          id
          title
          vendor
          productType
          collections(first: 1) {
            edges {
              node {
                id
                title
              }
            }
          }
        }
        inventoryItem {
          inventoryLevels {
            edges {
              node {
                id
                quantities(names: ["available", "incoming", "committed"]) {
                  name
                  quantity
                }
              }
            }
          }
        }
      }
    }
  }
}
`
